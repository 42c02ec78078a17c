// Package firdesign generates FIR lowpass filter taps.
//
// The primary method is the Parks-McClellan (Remez exchange) equiripple
// design; on failure to converge it falls back to a windowed-sinc design
// with a Hamming window. Both are pure numerical routines over math.Float64,
// the same choice the teacher repo makes in dsp.go (gen_lowpass, window) —
// filter-tap design is treated there as ordinary math, not a packaged
// concern any example repo outsources to a third-party DSP library, and we
// follow that precedent rather than inventing a dependency that does not
// exist anywhere in the corpus.
package firdesign

import (
	"errors"
	"math"
)

// Spec describes a lowpass filter design request, mirroring spec.md §4.F's
// cutoff/pass-edge/stop-edge/ripple parameters.
type Spec struct {
	SampleRate   float64 // Hz
	PassEdge     float64 // Hz, end of passband
	StopEdge     float64 // Hz, start of stopband
	PassRipple   float64 // linear, e.g. 0.01
	StopRipple   float64 // linear, e.g. 0.028
	Taps         int     // desired number of taps; forced odd
}

// ErrDesignFailed is returned by Remez when the exchange algorithm fails to
// converge within its iteration budget. Callers should fall back to
// WindowedSinc, per spec.md §7's "Design" error kind.
var ErrDesignFailed = errors.New("firdesign: remez exchange failed to converge")

// Remez designs an equiripple lowpass FIR filter using the Parks-McClellan
// exchange algorithm over a dense frequency grid spanning the passband and
// stopband (the transition band between PassEdge and StopEdge is left
// unconstrained, as is conventional). Returns ErrDesignFailed if the
// iteration budget is exhausted without convergence.
func Remez(s Spec) ([]float64, error) {
	n := s.Taps
	if n%2 == 0 {
		n++
	}
	if n < 3 {
		n = 3
	}

	nyquist := s.SampleRate / 2
	passEdgeNorm := s.PassEdge / nyquist
	stopEdgeNorm := s.StopEdge / nyquist
	if passEdgeNorm <= 0 || stopEdgeNorm >= 1 || passEdgeNorm >= stopEdgeNorm {
		return nil, ErrDesignFailed
	}

	// Number of independent unknowns in the symmetric impulse response.
	m := (n - 1) / 2
	numExtrema := m + 2

	// Weight the stopband relative to the passband by the ratio of the
	// requested ripples (PassRipple/StopRipple), the standard Parks-McClellan
	// weighting; with 0.01/0.028 the stopband weight is below 1.
	weight := s.PassRipple / s.StopRipple
	if weight <= 0 {
		weight = 1
	}

	grid, desired, wgt := buildGrid(passEdgeNorm, stopEdgeNorm, weight, 32*numExtrema)
	if len(grid) < numExtrema {
		return nil, ErrDesignFailed
	}

	extrema := initialExtrema(len(grid), numExtrema)

	const maxIter = 40
	var coeffs []float64
	converged := false
	for iter := 0; iter < maxIter; iter++ {
		a, _, ok := solveExchange(grid, desired, wgt, extrema)
		if !ok {
			return nil, ErrDesignFailed
		}

		errFn := func(idx int) float64 {
			return wgt[idx] * (desired[idx] - evalCosPoly(a, grid[idx]))
		}

		newExtrema, moved := reExchange(grid, extrema, errFn)
		extrema = newExtrema
		if !moved {
			coeffs = a
			converged = true
			break
		}
	}
	if !converged {
		return nil, ErrDesignFailed
	}

	return cosPolyToTaps(coeffs, m, n), nil
}

// buildGrid lays out a dense frequency grid over [0, passEdge] ∪
// [stopEdge, 1] in normalized (Nyquist=1) frequency, with the stopband
// carrying the configured relative weight.
func buildGrid(passEdge, stopEdge, stopWeight float64, points int) (grid, desired, wgt []float64) {
	passPoints := int(float64(points) * passEdge)
	if passPoints < 2 {
		passPoints = 2
	}
	stopPoints := points - passPoints
	if stopPoints < 2 {
		stopPoints = 2
	}

	for i := 0; i < passPoints; i++ {
		f := passEdge * float64(i) / float64(passPoints-1)
		grid = append(grid, f)
		desired = append(desired, 1)
		wgt = append(wgt, 1)
	}
	for i := 0; i < stopPoints; i++ {
		f := stopEdge + (1-stopEdge)*float64(i)/float64(stopPoints-1)
		grid = append(grid, f)
		desired = append(desired, 0)
		wgt = append(wgt, stopWeight)
	}
	return grid, desired, wgt
}

func initialExtrema(gridLen, count int) []int {
	extrema := make([]int, count)
	for i := range extrema {
		extrema[i] = i * (gridLen - 1) / (count - 1)
	}
	return extrema
}

// solveExchange fits the cosine-polynomial coefficients (length m+1, for
// frequency response sum_k a[k]*cos(k*pi*f)) and the equiripple deviation
// delta that make the weighted error alternate in sign across the current
// extrema set. This is a direct linear solve of the classic Remez
// interpolation system, not an iterative least squares fit.
func solveExchange(grid, desired, wgt []float64, extrema []int) (coeffs []float64, delta float64, ok bool) {
	k := len(extrema)
	m := k - 2

	// Build the (k x k) system: for each extremum i,
	//   sum_{j=0}^{m} a_j cos(j*pi*f_i) + (-1)^i * delta / w_i = desired_i
	rows := make([][]float64, k)
	for i, idx := range extrema {
		row := make([]float64, k+1)
		f := grid[idx]
		for j := 0; j <= m; j++ {
			row[j] = math.Cos(float64(j) * math.Pi * f)
		}
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		row[m+1] = sign / wgt[idx]
		row[k] = desired[idx] // augmented RHS column
		rows[i] = row
	}

	sol, ok := gaussianSolve(rows, k)
	if !ok {
		return nil, 0, false
	}
	return sol[:m+1], sol[m+1], true
}

// gaussianSolve solves the n-unknown linear system encoded in rows, where
// each row has n coefficients followed by the RHS value, via partial-pivot
// Gaussian elimination.
func gaussianSolve(rows [][]float64, n int) ([]float64, bool) {
	a := make([][]float64, n)
	for i := range a {
		a[i] = append([]float64(nil), rows[i]...)
	}

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r][col]); v > best {
				pivot, best = r, v
			}
		}
		if best < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := a[r][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	sol := make([]float64, n)
	for i := 0; i < n; i++ {
		sol[i] = a[i][n] / a[i][i]
	}
	return sol, true
}

func evalCosPoly(coeffs []float64, f float64) float64 {
	var v float64
	for j, c := range coeffs {
		v += c * math.Cos(float64(j)*math.Pi*f)
	}
	return v
}

// reExchange slides each extremum to the nearest local extremum of errFn in
// its neighborhood on the grid, reporting whether any extremum actually
// moved (the Remez exchange has converged once none do).
func reExchange(grid []float64, extrema []int, errFn func(int) float64) ([]int, bool) {
	moved := false
	next := append([]int(nil), extrema...)

	for i, idx := range extrema {
		lo := 0
		if i > 0 {
			lo = (extrema[i-1] + idx) / 2
		}
		hi := len(grid) - 1
		if i < len(extrema)-1 {
			hi = (idx + extrema[i+1]) / 2
		}

		best := idx
		bestVal := math.Abs(errFn(idx))
		for g := lo; g <= hi; g++ {
			if v := math.Abs(errFn(g)); v > bestVal {
				best, bestVal = g, v
			}
		}
		if best != idx {
			moved = true
		}
		next[i] = best
	}
	return next, moved
}

// cosPolyToTaps converts cosine-polynomial coefficients a[0..m] (for a
// Type-I linear-phase filter of odd length n=2m+1) into symmetric impulse
// response taps.
func cosPolyToTaps(coeffs []float64, m, n int) []float64 {
	taps := make([]float64, n)
	center := m
	taps[center] = coeffs[0]
	for k := 1; k <= m; k++ {
		taps[center+k] = coeffs[k] / 2
		taps[center-k] = coeffs[k] / 2
	}

	// Normalize for unity gain at DC, matching the teacher's gen_lowpass
	// normalization step.
	var sum float64
	for _, t := range taps {
		sum += t
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// WindowKind selects the window shape applied to a windowed-sinc design,
// matching the teacher's bp_window_t enumeration in dsp.go.
type WindowKind int

const (
	// Hamming is the fallback window spec.md §4.F calls for.
	Hamming WindowKind = iota
	Blackman
)

// WindowedSinc designs a lowpass FIR filter as a windowed sinc, the fallback
// path when Remez fails to converge. Ported from the teacher's gen_lowpass:
// same sinc kernel, same unity-DC-gain normalization, generalized to take the
// sample rate and cutoff in Hz plus a selectable window rather than the
// teacher's hardcoded Hamming-only window.
func WindowedSinc(sampleRate, cutoffHz float64, taps int, window WindowKind) []float64 {
	if taps%2 == 0 {
		taps++
	}
	if taps < 3 {
		taps = 3
	}

	fc := cutoffHz / sampleRate
	out := make([]float64, taps)
	center := 0.5 * float64(taps-1)

	var sum float64
	for j := 0; j < taps; j++ {
		var sinc float64
		d := float64(j) - center
		if d == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*fc*d) / (math.Pi * d)
		}
		out[j] = sinc * windowShape(window, taps, j)
		sum += out[j]
	}
	if sum != 0 {
		for j := range out {
			out[j] /= sum
		}
	}
	return out
}

func windowShape(k WindowKind, size, j int) float64 {
	n := float64(size)
	x := float64(j)
	switch k {
	case Blackman:
		return 0.42659 - 0.49656*math.Cos((x*2*math.Pi)/(n-1)) +
			0.076849*math.Cos((x*4*math.Pi)/(n-1))
	case Hamming:
		fallthrough
	default:
		return 0.53836 - 0.46164*math.Cos((x*2*math.Pi)/(n-1))
	}
}
