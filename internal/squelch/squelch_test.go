package squelch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// stepAtDB feeds one I/Q sample (Q=0) whose instantaneous power equals
// 10^(db/10) through the squelch.
func stepAtDB(s *Squelch, db float64) State {
	amp := float32(math.Sqrt(dbToLinear(db)))
	return s.Step(amp, 0)
}

func TestSquelch_RampScenario(t *testing.T) {
	// Scenario 2 from spec.md §8: alpha=0.0001, threshold=-78dB, R=4.
	// Feed many samples at -60dB (above threshold) then many at -90dB
	// (below threshold) and check the MUTE->ATTACK(4)->UNMUTE->...->DECAY(4)->MUTE
	// trace with exactly two changed edges.
	s := New(Config{Alpha: 0.0001, ThresholdDB: -78, Ramp: 4})

	var edges int
	attackSamples := 0
	sawAttack := false
	sawUnmute := false

	for i := 0; i < 10000; i++ {
		st := stepAtDB(s, -60)
		if st == Attack {
			sawAttack = true
			attackSamples++
		}
		if s.Changed() {
			edges++
			s.ClearChanged()
		}
		if st == Unmute {
			sawUnmute = true
		}
	}
	require.True(t, sawAttack)
	require.True(t, sawUnmute)
	assert.Equal(t, 4, attackSamples)
	assert.Equal(t, Unmute, s.State())

	decaySamples := 0
	sawMuteAgain := false
	for i := 0; i < 10000; i++ {
		st := stepAtDB(s, -90)
		if st == Decay {
			decaySamples++
		}
		if s.Changed() {
			edges++
			s.ClearChanged()
		}
		if st == Mute {
			sawMuteAgain = true
		}
	}
	require.True(t, sawMuteAgain)
	assert.Equal(t, 4, decaySamples)
	assert.Equal(t, Mute, s.State())
	assert.Equal(t, 2, edges)
}

func TestSquelch_RampCounterBounds(t *testing.T) {
	// Invariant 2: ramp counter is 0 only in MUTE, R only in UNMUTE,
	// strictly between in ATTACK/DECAY.
	rapid.Check(t, func(t *rapid.T) {
		ramp := rapid.IntRange(0, 16).Draw(t, "ramp")
		s := New(Config{Alpha: 0.01, ThresholdDB: -50, Ramp: ramp})

		n := rapid.IntRange(0, 200).Draw(t, "n")
		for i := 0; i < n; i++ {
			db := rapid.SampledFrom([]float64{-90, -70, -50, -30}).Draw(t, "db")
			st := stepAtDB(s, db)
			switch st {
			case Mute:
				assert.Equal(t, 0, s.counter)
			case Unmute:
				assert.Equal(t, ramp, s.counter)
			case Attack, Decay:
				assert.True(t, s.counter > 0 && s.counter < ramp || ramp == 0)
			}
		}
	})
}

func TestSquelch_ZeroRampNoHysteresis(t *testing.T) {
	s := New(Config{Alpha: 1, ThresholdDB: -50, Ramp: 0})
	st := stepAtDB(s, -10)
	assert.Equal(t, Unmute, st)
	assert.True(t, s.Changed())
	s.ClearChanged()

	st = stepAtDB(s, -90)
	assert.Equal(t, Mute, st)
	assert.True(t, s.Changed())
}

func TestSquelch_Reset(t *testing.T) {
	s := New(Config{Alpha: 1, ThresholdDB: -50, Ramp: 0})
	stepAtDB(s, -10)
	require.Equal(t, Unmute, s.State())

	s.Reset()
	assert.Equal(t, Mute, s.State())
	assert.False(t, s.Changed())
}
