// Package fmdemod implements phase-difference FM demodulation (spec.md
// §4.C), embedding a PowerSquelch estimator that is fed every sample
// regardless of mute state.
//
// Grounded on the teacher's demod_afsk.go shape: an init step that
// precomputes any lookup tables and a per-sample processing path that both
// demodulates and updates carrier-detect/squelch state in the same pass, so
// gating decisions can be made by the caller (demod_afsk_init/per-sample
// loop in the teacher feeds dcd_each_symbol2 unconditionally, mirroring
// spec.md §4.C's "emits demodulated samples regardless of mute").
package fmdemod

import (
	"math"

	"github.com/sdrtrunk-go/decodercore/internal/buffer"
	"github.com/sdrtrunk-go/decodercore/internal/squelch"
)

// Config parameters for the demodulator, per spec.md §4.C/§6.
type Config struct {
	// Alpha scales the phase-difference output (gain applied after atan2).
	Alpha float64

	// SquelchAlpha, SquelchThresholdDB, and SquelchRamp configure the
	// embedded PowerSquelch (spec.md §4.D / §6's squelch.* options).
	SquelchAlpha       float64
	SquelchThresholdDB float64
	SquelchRamp        int
}

// Demodulator converts complex baseband buffers into real (mono)
// demodulated audio via phase-difference FM demodulation, gating decisions
// left to the caller via IsMuted/IsSquelchChanged.
type Demodulator struct {
	cfg     Config
	sq      *squelch.Squelch
	pool    *buffer.Pool
	prevI   float32
	prevQ   float32
	hasPrev bool
}

// New constructs a Demodulator. outPool allocates the real output buffers.
func New(cfg Config, outPool *buffer.Pool) *Demodulator {
	return &Demodulator{
		cfg: cfg,
		sq: squelch.New(squelch.Config{
			Alpha:       cfg.SquelchAlpha,
			ThresholdDB: cfg.SquelchThresholdDB,
			Ramp:        cfg.SquelchRamp,
		}),
		pool: outPool,
	}
}

// Demodulate computes, for each complex sample z[n], the scaled phase
// difference arg(z[n] * conj(z[n-1])), updates the embedded squelch with
// |z[n]|^2, and emits a real buffer of the same sample count. Consumes
// (releases) the input buffer.
func (d *Demodulator) Demodulate(in *buffer.Buffer) *buffer.Buffer {
	n := in.SampleCount()
	out := d.pool.Get(n)
	src := in.Samples()
	dst := out.Samples()

	for k := 0; k < n; k++ {
		i := src[2*k]
		q := src[2*k+1]

		if d.hasPrev {
			// z[n] * conj(z[n-1]) = (i+jq)(prevI - j*prevQ)
			re := i*d.prevI + q*d.prevQ
			im := q*d.prevI - i*d.prevQ
			dst[k] = float32(d.cfg.Alpha * math.Atan2(float64(im), float64(re)))
		} else {
			dst[k] = 0
		}

		d.sq.Step(i, q)
		d.prevI, d.prevQ = i, q
		d.hasPrev = true
	}

	in.DecrementUserCount()
	return out
}

// IsMuted reports the embedded squelch's current gate state.
func (d *Demodulator) IsMuted() bool { return d.sq.Muted() }

// IsSquelchChanged reports and does not clear the squelch's sticky changed
// flag; callers gating on it should call ClearSquelchChanged after acting.
func (d *Demodulator) IsSquelchChanged() bool { return d.sq.Changed() }

// ClearSquelchChanged clears the one-shot squelch-changed flag.
func (d *Demodulator) ClearSquelchChanged() { d.sq.ClearChanged() }

// Squelch exposes the embedded squelch for power/threshold inspection.
func (d *Demodulator) Squelch() *squelch.Squelch { return d.sq }

// Reset clears the phase history and the embedded squelch, per spec.md
// §4.C's reset() contract.
func (d *Demodulator) Reset() {
	d.hasPrev = false
	d.prevI, d.prevQ = 0, 0
	d.sq.Reset()
}
