package node

// At maps x through the breakpoints of p. See [Interpolate].
func (p *InterpolateParams) At(x float64) float64 {
	return Interpolate(x, p.InputRange, p.OutputRange)
}

// Interpolate maps x through a piecewise-linear function given by the
// breakpoints in (non-decreasing, at least two entries) and the matching
// outputs out.
//
// The segment [i-1, i] is chosen by the first i >= 1 with in[i] >= x, or the
// last segment when x lies beyond every breakpoint. Values outside the range
// extrapolate along the chosen segment; there is no clamping. A zero-width
// segment yields out[i-1] when x <= in[i] and out[i] otherwise.
func Interpolate(x float64, in, out []float64) float64 {
	i := len(in) - 1
	for j := 1; j < len(in); j++ {
		if in[j] >= x {
			i = j
			break
		}
	}
	x0, x1 := in[i-1], in[i]
	y0, y1 := out[i-1], out[i]
	if x0 == x1 {
		if x <= x1 {
			return y0
		}
		return y1
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}
