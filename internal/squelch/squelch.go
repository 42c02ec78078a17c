// Package squelch implements the power-based squelch state machine from
// spec.md §4.D: a single-pole IIR power estimator feeding a 4-state
// hysteresis machine with attack/decay ramps.
//
// Grounded on the teacher's pll_dcd.go data-carrier-detect strategy: a
// sticky "locked" flag flipped only at threshold crossings, with a
// configurable on/off asymmetry (DCD_THRESH_ON vs DCD_THRESH_OFF) that we
// re-express as the spec's explicit 4-state enum plus ramp counter, per
// design notes §9, rather than the teacher's shift-register running score.
package squelch

import "math"

// State is one of the four squelch states from spec.md §3.
type State int

const (
	Mute State = iota
	Attack
	Unmute
	Decay
)

func (s State) String() string {
	switch s {
	case Mute:
		return "MUTE"
	case Attack:
		return "ATTACK"
	case Unmute:
		return "UNMUTE"
	case Decay:
		return "DECAY"
	default:
		return "UNKNOWN"
	}
}

// Config parameters, matching spec.md §6.
type Config struct {
	Alpha      float64 // IIR decay, (0,1]
	ThresholdDB float64
	Ramp       int // R >= 0
}

// DefaultConfig matches spec.md §6's stated defaults.
func DefaultConfig() Config {
	return Config{Alpha: 0.0001, ThresholdDB: -78, Ramp: 4}
}

// Squelch is the power estimator plus hysteresis state machine. Zero value
// is not usable; construct with New.
type Squelch struct {
	cfg       Config
	threshLin float64
	power     float64
	state     State
	counter   int
	changed   bool
}

// New constructs a Squelch in the MUTE state with zero smoothed power.
func New(cfg Config) *Squelch {
	return &Squelch{
		cfg:       cfg,
		threshLin: dbToLinear(cfg.ThresholdDB),
		state:     Mute,
		counter:   0,
	}
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

// Step processes one I/Q sample's instantaneous power (i*i + q*q) through
// the IIR estimator and the state table in spec.md §4.D, evaluated in the
// order given there. Returns the resulting state. A transition into UNMUTE
// or MUTE sets the sticky changed flag reported by Changed(); it is cleared
// by ClearChanged, not by Step, so callers that poll less often than every
// sample still observe an edge.
func (s *Squelch) Step(i, q float32) State {
	instPower := float64(i)*float64(i) + float64(q)*float64(q)
	s.power += s.cfg.Alpha * (instPower - s.power)

	below := s.power < s.threshLin

	switch s.state {
	case Mute:
		if !below {
			if s.cfg.Ramp == 0 {
				s.state = Unmute
				s.changed = true
			} else {
				s.state = Attack
				s.counter = 1
			}
		}
	case Attack:
		if s.counter >= s.cfg.Ramp {
			s.state = Unmute
			s.changed = true
		} else {
			s.counter++
		}
	case Unmute:
		if below {
			if s.cfg.Ramp == 0 {
				s.state = Mute
				s.changed = true
			} else {
				s.state = Decay
				s.counter = s.cfg.Ramp - 1
			}
		}
	case Decay:
		if s.counter <= 0 {
			s.state = Mute
			s.changed = true
		} else {
			s.counter--
		}
	}

	return s.state
}

// State returns the current squelch state without advancing it.
func (s *Squelch) State() State { return s.state }

// Muted reports whether audio should be gated (state is not Unmute).
func (s *Squelch) Muted() bool { return s.state != Unmute }

// Changed reports the sticky one-shot flag set whenever Step enters UNMUTE or
// MUTE; entering ATTACK or DECAY does not set it (per spec.md §4.D, "changed"
// flag is sticky until read+cleared).
func (s *Squelch) Changed() bool { return s.changed }

// ClearChanged clears the one-shot changed flag after the caller observes it.
func (s *Squelch) ClearChanged() { s.changed = false }

// Power returns the smoothed power in dB: 10*log10(p).
func (s *Squelch) Power() float64 {
	if s.power <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(s.power)
}

// Threshold returns the configured threshold in dB.
func (s *Squelch) Threshold() float64 { return s.cfg.ThresholdDB }

// Reset returns the squelch to its initial MUTE state with zero power,
// matching FMDemodulator.Reset()'s contract in spec.md §4.C.
func (s *Squelch) Reset() {
	s.power = 0
	s.state = Mute
	s.counter = 0
	s.changed = false
}
