// Package steffen implements the monotonic cubic interpolation of
// Steffen (1990, Astron. Astrophys. 239, 443) for single columns.
//
// The node derivatives are clamped so the interpolant never oscillates:
// wherever the input values are monotonic between two adjacent nodes, the
// interpolated curve stays between the endpoint values.
package steffen

import "math"

// Interpolator carries the per-column slope scratch space so one
// allocation serves many columns.
type Interpolator struct {
	slopes []float64
}

// Column interpolates one column onto the requested output levels,
// writing into dst, which must have the same length as outputs.
//
// levels must increase strictly, and outputs must be sorted ascending for
// the forward bracket cursor to see every output point. Points below the
// first level are extrapolated when at or above boundary (flat by default,
// along the first node's slope estimate when gradient is set) and are NaN
// otherwise. Points above the last level are always NaN.
func (in *Interpolator) Column(dst, levels, values, outputs []float64, boundary float64, gradient bool) error {
	k := len(levels)
	if len(values) != k || len(dst) != len(outputs) {
		return ErrLengthMismatch
	}
	if k < 3 {
		return ErrShortColumn
	}
	for i := 1; i < k; i++ {
		if d := levels[i] - levels[i-1]; d <= 0 {
			return &MonotonicityError{Level: i, Delta: d}
		}
	}
	in.computeSlopes(levels, values)

	cursor := 0
	for n, out := range outputs {
		for cursor < k && levels[cursor] < out {
			cursor++
		}
		switch {
		case cursor > 0 && cursor < k:
			lo := cursor - 1
			delta := levels[cursor] - levels[lo]
			slope := (values[cursor] - values[lo]) / delta
			a := (in.slopes[lo] + in.slopes[cursor] - 2*slope) / (delta * delta)
			b := (3*slope - 2*in.slopes[lo] - in.slopes[cursor]) / delta
			t := out - levels[lo]
			dst[n] = ((a*t+b)*t+in.slopes[lo])*t + values[lo]
		case cursor == 0 && out >= boundary:
			if gradient {
				dst[n] = values[0] + in.slopes[0]*(out-levels[0])
			} else {
				dst[n] = values[0]
			}
		default:
			dst[n] = math.NaN()
		}
	}
	return nil
}

// computeSlopes fills in.slopes with Steffen's clamped derivative estimate
// at every node.
func (in *Interpolator) computeSlopes(levels, values []float64) {
	k := len(levels)
	if cap(in.slopes) < k {
		in.slopes = make([]float64, k)
	}
	in.slopes = in.slopes[:k]

	deltaLower := levels[1] - levels[0]
	deltaUpper := levels[2] - levels[1]
	slopeLower := (values[1] - values[0]) / deltaLower
	slopeUpper := (values[2] - values[1]) / deltaUpper
	weighted := slopeLower*(1+deltaLower/(deltaLower+deltaUpper)) -
		slopeUpper*deltaLower/(deltaLower+deltaUpper)
	switch {
	case weighted*slopeLower <= 0:
		in.slopes[0] = 0
	case math.Abs(weighted) > 2*math.Abs(slopeLower):
		in.slopes[0] = 2 * slopeLower
	default:
		in.slopes[0] = weighted
	}

	for i := 1; i < k-1; i++ {
		deltaLower = levels[i] - levels[i-1]
		deltaUpper = levels[i+1] - levels[i]
		slopeLower = (values[i] - values[i-1]) / deltaLower
		slopeUpper = (values[i+1] - values[i]) / deltaUpper
		weighted = (slopeLower*deltaUpper + slopeUpper*deltaLower) /
			(deltaLower + deltaUpper)
		switch {
		case slopeLower*slopeUpper <= 0:
			in.slopes[i] = 0
		case math.Abs(weighted) > 2*math.Abs(slopeLower),
			math.Abs(weighted) > 2*math.Abs(slopeUpper):
			in.slopes[i] = math.Copysign(2, slopeLower) *
				math.Min(math.Abs(slopeLower), math.Abs(slopeUpper))
		default:
			in.slopes[i] = weighted
		}
	}

	last := k - 1
	deltaLower = levels[last-1] - levels[last-2]
	deltaUpper = levels[last] - levels[last-1]
	slopeLower = (values[last-1] - values[last-2]) / deltaLower
	slopeUpper = (values[last] - values[last-1]) / deltaUpper
	weighted = slopeUpper*(1+deltaUpper/(deltaUpper+deltaLower)) -
		slopeLower*deltaUpper/(deltaUpper+deltaLower)
	switch {
	case weighted*slopeUpper <= 0:
		in.slopes[last] = 0
	case math.Abs(weighted) > 2*math.Abs(slopeUpper):
		in.slopes[last] = 2 * slopeUpper
	default:
		in.slopes[last] = weighted
	}
}
