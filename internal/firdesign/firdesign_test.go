package firdesign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowedSinc_OddLengthUnityDCGain(t *testing.T) {
	taps := WindowedSinc(48000, 12000, 64, Hamming)
	require.NotEmpty(t, taps)
	assert.Equal(t, 1, len(taps)%2) // forced to odd length

	var sum float64
	for _, v := range taps {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9) // unity gain at DC
}

func TestRemez_DesignsOddSymmetricFilter(t *testing.T) {
	taps, err := Remez(Spec{
		SampleRate: 48000,
		PassEdge:   11500,
		StopEdge:   12500,
		PassRipple: 0.01,
		StopRipple: 0.028,
		Taps:       45,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, len(taps)%2)

	// Symmetric (linear phase) impulse response.
	for i := range taps {
		assert.InDelta(t, taps[i], taps[len(taps)-1-i], 1e-9)
	}
}

func TestRemez_RejectsInvertedEdges(t *testing.T) {
	_, err := Remez(Spec{
		SampleRate: 48000,
		PassEdge:   20000,
		StopEdge:   5000,
		PassRipple: 0.01,
		StopRipple: 0.028,
		Taps:       31,
	})
	assert.ErrorIs(t, err, ErrDesignFailed)
}
