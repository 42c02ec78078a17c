// Package corerr defines the fatal error taxonomy of spec.md §7: kinds a
// host must surface and tear a channel down on, as distinct from the
// recoverable Design/Data/Parse kinds that are logged and handled in place.
package corerr

import "fmt"

// Kind enumerates the fatal error classes from spec.md §7. Lifetime errors
// (ReusableBuffer misuse) are never constructed here — those are
// programmer errors and panic immediately at the point of misuse.
type Kind int

const (
	// Configuration: a supplied parameter cannot produce a valid pipeline,
	// e.g. a sample rate below the channel bandwidth's Nyquist rate.
	Configuration Kind = iota
	// Ordering: an operation's happens-before precondition was violated,
	// e.g. a sample buffer arriving before any sample-rate event.
	Ordering
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "Configuration"
	case Ordering:
		return "Ordering"
	default:
		return "Unknown"
	}
}

// Error is the fatal error type returned by core operations, per spec.md
// §7: the host is expected to surface it and tear the owning channel down.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New constructs a fatal Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
