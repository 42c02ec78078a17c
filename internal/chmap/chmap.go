// Package chmap implements the pure channel-number-to-frequency mapping of
// spec.md §4.I. Loading a map from an on-disk configuration file is the
// out-of-scope external collaborator's job (spec.md §1); this package only
// consumes an already-built table.
package chmap

// Map is an immutable channel-number to frequency-in-Hz lookup. The zero
// value is a valid, empty map (every lookup returns 0).
type Map struct {
	table map[int]int64
}

// New constructs a Map from a channel-number -> frequency-Hz table. The
// caller's map is copied; Map is never mutated afterward by this package,
// per spec.md §4.I ("Not mutated by any component in scope").
func New(table map[int]int64) *Map {
	m := &Map{table: make(map[int]int64, len(table))}
	for k, v := range table {
		m.table[k] = v
	}
	return m
}

// Frequency returns the frequency in Hz for a channel number, or 0 if no
// mapping exists.
func (m *Map) Frequency(channel int) int64 {
	if m == nil {
		return 0
	}
	return m.table[channel]
}
