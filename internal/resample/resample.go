// Package resample implements the rational-rate real-sample resampler of
// spec.md §4.E. Per spec.md §1, resampler arithmetic itself is treated as a
// black-box stage with a declared input/output rate — this package
// implements a conventional linear-phase polyphase design (grounded on the
// teacher's pfilter.go role in the pipeline: constructed with explicit
// input/output rates, delivering output via a registered downstream
// listener) without attempting to reproduce any particular reference
// resampler's exact numerics.
package resample

import (
	"math"

	"github.com/sdrtrunk-go/decodercore/internal/buffer"
)

// Listener receives resampled output buffers. Per spec.md §5, a listener
// must not block the caller.
type Listener func(out *buffer.Buffer)

// Resampler converts a stream of real buffers from InputRate to OutputRate
// using a rational L/M polyphase structure: upsample by L, lowpass filter at
// 0.9 * min(InputRate, OutputRate)/2, downsample by M.
type Resampler struct {
	inRate, outRate int
	bufferSize      int
	chunkSize       int
	l, m            int
	taps            []float64
	pool            *buffer.Pool
	listener        Listener

	history   []float64
	phase     int // position within the upsampled timeline, mod l*historyLen terms
	outOfSync float64
}

// New constructs a Resampler for the given rational rate change.
// bufferSize/chunkSize bound internal buffering granularity; a downstream
// listener is registered separately via SetListener.
func New(inputRate, outputRate, bufferSize, chunkSize int, pool *buffer.Pool) *Resampler {
	l, m := reduceRatio(outputRate, inputRate)
	cutoff := float64(inputRate)
	if outputRate < inputRate {
		cutoff = float64(outputRate)
	}
	cutoff = cutoff / 2 * 0.9 // small guard band below Nyquist of the slower rate

	tapCount := 64*l + 1
	if tapCount > 2048 {
		tapCount = 2048
	}
	taps := designLowpass(float64(inputRate)*float64(l), cutoff, tapCount)

	return &Resampler{
		inRate:     inputRate,
		outRate:    outputRate,
		bufferSize: bufferSize,
		chunkSize:  chunkSize,
		l:          l,
		m:          m,
		taps:       taps,
		pool:       pool,
		history:    make([]float64, tapCount),
	}
}

func reduceRatio(a, b int) (int, int) {
	g := gcd(a, b)
	if g == 0 {
		return a, b
	}
	return a / g, b / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func designLowpass(sampleRate, cutoff float64, taps int) []float64 {
	if taps%2 == 0 {
		taps++
	}
	out := make([]float64, taps)
	fc := cutoff / sampleRate
	center := 0.5 * float64(taps-1)
	var sum float64
	for j := 0; j < taps; j++ {
		d := float64(j) - center
		var sinc float64
		if d == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*d) / (math.Pi * d)
		}
		w := 0.53836 - 0.46164*math.Cos((float64(j)*2*math.Pi)/(float64(taps)-1))
		out[j] = sinc * w
		sum += out[j]
	}
	if sum != 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// SetListener registers the downstream consumer of resampled buffers.
func (r *Resampler) SetListener(l Listener) { r.listener = l }

// Resample consumes an input real buffer and forwards one or more output
// buffers to the registered listener, via the upsample-filter-downsample
// polyphase structure. Releases the input buffer.
func (r *Resampler) Resample(in *buffer.Buffer) {
	src := in.Samples()
	n := in.SampleCount()

	// Shift in new samples, interleaving L-1 zeros between each (the
	// upsample step), conceptually; we instead walk the output timeline
	// directly using a polyphase filter indexed by phase, which is
	// mathematically equivalent and avoids materializing the zero-stuffed
	// signal.
	histLen := len(r.history)

	var outSamples []float32
	// Output sample rate position advances by m for every l input samples
	// consumed; we walk per input sample and emit whenever the fractional
	// accumulator crosses an output boundary.
	for i := 0; i < n; i++ {
		copy(r.history, r.history[1:])
		r.history[histLen-1] = float64(src[i])

		for r.outOfSync < float64(r.l) {
			phase := int(r.outOfSync)
			v := r.polyphaseSum(phase)
			outSamples = append(outSamples, float32(v))
			r.outOfSync += float64(r.m)
		}
		r.outOfSync -= float64(r.l)
	}

	in.DecrementUserCount()

	if len(outSamples) == 0 {
		return
	}
	r.emit(outSamples)
}

// polyphaseSum evaluates the FIR sum using every l-th tap offset by phase,
// against the current history window (the standard polyphase
// decomposition of an upsample-then-filter operation).
func (r *Resampler) polyphaseSum(phase int) float64 {
	var acc float64
	histLen := len(r.history)
	for k := phase; k < len(r.taps); k += r.l {
		histIdx := histLen - 1 - (k / r.l)
		if histIdx < 0 {
			break
		}
		acc += r.taps[k] * r.history[histIdx]
	}
	return acc * float64(r.l)
}

func (r *Resampler) emit(samples []float32) {
	if r.listener == nil {
		return
	}
	chunk := r.chunkSize
	if chunk <= 0 {
		chunk = len(samples)
	}
	for off := 0; off < len(samples); off += chunk {
		end := off + chunk
		if end > len(samples) {
			end = len(samples)
		}
		out := r.pool.Get(end - off)
		copy(out.Samples(), samples[off:end])
		r.listener(out)
	}
}
