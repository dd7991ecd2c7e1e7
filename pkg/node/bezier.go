package node

import "math"

// unitBezier is a cubic-bezier easing curve from (0,0) to (1,1) with control
// points (x1,y1) and (x2,y2), matching CSS cubic-bezier().
type unitBezier struct {
	x1, y1, x2, y2 float64
}

func newUnitBezier(x1, y1, x2, y2 float64) *unitBezier {
	return &unitBezier{x1: x1, y1: y1, x2: x2, y2: y2}
}

// solve returns the curve's y for progress t. Inputs outside [0, 1] are
// clamped to the curve's end points. NaN passes through.
func (b *unitBezier) solve(t float64) float64 {
	switch {
	case math.IsNaN(t):
		return t
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}

	u := t
	// Newton-Raphson converges quickly for most curves.
	for range 8 {
		x := sampleCurve(b.x1, b.x2, u) - t
		if math.Abs(x) < 1e-7 {
			return sampleCurve(b.y1, b.y2, clampUnit(u))
		}
		dx := sampleCurveDerivative(b.x1, b.x2, u)
		if math.Abs(dx) < 1e-7 {
			break
		}
		u -= x / dx
	}

	// Bisection fallback keeps u in [0,1].
	lo, hi := 0.0, 1.0
	u = clampUnit(u)
	for range 20 {
		x := sampleCurve(b.x1, b.x2, u) - t
		if math.Abs(x) < 1e-7 {
			break
		}
		if x > 0 {
			hi = u
		} else {
			lo = u
		}
		u = (lo + hi) * 0.5
	}
	return sampleCurve(b.y1, b.y2, u)
}

func sampleCurve(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func sampleCurveDerivative(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
