// Package firfilter implements the complex (I/Q) FIR lowpass filter stage of
// the NBFM pipeline, grounded on the teacher's per-stage filter application
// style (pfilter.go applies taps generated by dsp.go to a streaming buffer,
// keeping a private delay line between calls).
package firfilter

import "github.com/sdrtrunk-go/decodercore/internal/buffer"

// ComplexFilter applies a symmetric FIR lowpass to interleaved I/Q samples,
// retaining a delay line of len(taps)-1 complex samples between calls.
type ComplexFilter struct {
	taps  []float32
	pool  *buffer.Pool
	delayI []float32
	delayQ []float32
}

// New constructs a ComplexFilter from a tap array (as produced by
// internal/firdesign) and a pool used to allocate filtered output buffers.
// The delay line is zero-filled, per spec.md §4.B.
func New(taps []float64, pool *buffer.Pool) *ComplexFilter {
	f32 := make([]float32, len(taps))
	for i, t := range taps {
		f32[i] = float32(t)
	}
	n := len(taps) - 1
	if n < 0 {
		n = 0
	}
	return &ComplexFilter{
		taps:   f32,
		pool:   pool,
		delayI: make([]float32, n),
		delayQ: make([]float32, n),
	}
}

// Filter convolves the input complex buffer with the filter taps, producing
// a new pooled buffer of the same sample count, and releases the input
// buffer's reference (ownership transfers in, a new buffer transfers out).
func (f *ComplexFilter) Filter(in *buffer.Buffer) *buffer.Buffer {
	n := in.SampleCount()
	out := f.pool.Get(n)

	src := in.Samples()
	dst := out.Samples()
	taps := f.taps
	ntaps := len(taps)

	// History is delayI/delayQ followed by the samples already consumed
	// from this call; build an index function rather than materializing a
	// combined buffer every call.
	histLen := len(f.delayI)

	sampleAt := func(i int) (float32, float32) {
		if i < 0 {
			idx := histLen + i
			if idx < 0 {
				return 0, 0
			}
			return f.delayI[idx], f.delayQ[idx]
		}
		return src[2*i], src[2*i+1]
	}

	for n0 := 0; n0 < n; n0++ {
		var accI, accQ float32
		for k := 0; k < ntaps; k++ {
			si, sq := sampleAt(n0 - k)
			accI += taps[k] * si
			accQ += taps[k] * sq
		}
		dst[2*n0] = accI
		dst[2*n0+1] = accQ
	}

	f.updateDelay(src, n)
	in.DecrementUserCount()
	return out
}

func (f *ComplexFilter) updateDelay(src []float32, n int) {
	histLen := len(f.delayI)
	if histLen == 0 {
		return
	}
	if n >= histLen {
		for i := 0; i < histLen; i++ {
			idx := n - histLen + i
			f.delayI[i] = src[2*idx]
			f.delayQ[i] = src[2*idx+1]
		}
		return
	}
	// Fewer new samples than history length: shift the old tail left and
	// append the new samples.
	shift := n
	copy(f.delayI, f.delayI[shift:])
	copy(f.delayQ, f.delayQ[shift:])
	for i := 0; i < n; i++ {
		f.delayI[histLen-n+i] = src[2*i]
		f.delayQ[histLen-n+i] = src[2*i+1]
	}
}

// Dispose discards the delay line. Per spec.md §4.B, the delay line is
// scoped to the filter instance, not shared across stages.
func (f *ComplexFilter) Dispose() {
	f.delayI = nil
	f.delayQ = nil
}
