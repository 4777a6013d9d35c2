package action

import (
	"math"
	"sort"
)

// Deadzone remaps an axis value so that [Low, CenterLow] covers
// [-1, 0] and [CenterHigh, High] covers [0, 1], flattening the span
// between the center pair to zero. The zero value applies no
// deadzone.
type Deadzone struct {
	Low        float64
	CenterLow  float64
	CenterHigh float64
	High       float64
}

// DefaultDeadzone covers the full axis range with no flat center.
func DefaultDeadzone() Deadzone {
	return Deadzone{Low: -1, CenterLow: 0, CenterHigh: 0, High: 1}
}

// Apply maps a raw value through the deadzone.
func (d Deadzone) Apply(v float64) float64 {
	if d == (Deadzone{}) {
		return v
	}
	if v >= 0 {
		span := d.High - d.CenterHigh
		if span <= 0 {
			if v > d.CenterHigh {
				return 1
			}
			return 0
		}
		return math.Min(1, math.Max(0, (v-d.CenterHigh)/span))
	}
	span := d.CenterLow - d.Low
	if span <= 0 {
		if v < d.CenterLow {
			return -1
		}
		return 0
	}
	return math.Max(-1, math.Min(0, (v-d.CenterLow)/span))
}

// Apply reshapes one axis value through the deadzone and the control
// point curve. With no control points the deadzoned value passes
// through unchanged. Not safe for concurrent use.
func (c *ResponseCurve) Apply(v float64) float64 {
	v = c.Deadzone.Apply(v)
	c.ensure()
	if len(c.sorted) == 0 {
		return v
	}
	var out float64
	if c.spline != nil {
		out = c.spline.at(v)
	} else {
		out = lerpPoints(c.sorted, v)
	}
	return math.Max(-1, math.Min(1, out))
}

// ensure sorts the control points and builds the spline once.
func (c *ResponseCurve) ensure() {
	if c.prepared {
		return
	}
	c.prepared = true
	if len(c.Points) == 0 {
		return
	}
	c.sorted = append([]CurvePoint(nil), c.Points...)
	sort.Slice(c.sorted, func(i, j int) bool {
		return c.sorted[i].X < c.sorted[j].X
	})
	if c.Curve == CubicSpline && len(c.sorted) >= 2 {
		c.spline = newSpline(c.sorted)
	}
}

// lerpPoints interpolates linearly between sorted control points and
// clamps outside their span.
func lerpPoints(points []CurvePoint, x float64) float64 {
	n := len(points)
	if x <= points[0].X {
		return points[0].Y
	}
	if x >= points[n-1].X {
		return points[n-1].Y
	}
	i := sort.Search(n, func(i int) bool { return points[i].X > x }) - 1
	a, b := points[i], points[i+1]
	if b.X == a.X {
		return a.Y
	}
	t := (x - a.X) / (b.X - a.X)
	return a.Y + t*(b.Y-a.Y)
}

// spline is a natural cubic spline over sorted control points.
type spline struct {
	xs []float64
	ys []float64
	y2 []float64
}

// newSpline builds the spline from at least two sorted points.
func newSpline(points []CurvePoint) *spline {
	n := len(points)
	s := &spline{
		xs: make([]float64, n),
		ys: make([]float64, n),
		y2: make([]float64, n),
	}
	for i, p := range points {
		s.xs[i] = p.X
		s.ys[i] = p.Y
	}

	// Solve the tridiagonal system for the second derivatives with
	// natural boundary conditions.
	u := make([]float64, n)
	for i := 1; i < n-1; i++ {
		sig := (s.xs[i] - s.xs[i-1]) / (s.xs[i+1] - s.xs[i-1])
		p := sig*s.y2[i-1] + 2
		s.y2[i] = (sig - 1) / p
		u[i] = (s.ys[i+1]-s.ys[i])/(s.xs[i+1]-s.xs[i]) - (s.ys[i]-s.ys[i-1])/(s.xs[i]-s.xs[i-1])
		u[i] = (6*u[i]/(s.xs[i+1]-s.xs[i-1]) - sig*u[i-1]) / p
	}
	for i := n - 2; i >= 0; i-- {
		s.y2[i] = s.y2[i]*s.y2[i+1] + u[i]
	}
	return s
}

// at evaluates the spline, clamping outside the control point span.
func (s *spline) at(x float64) float64 {
	n := len(s.xs)
	if x <= s.xs[0] {
		return s.ys[0]
	}
	if x >= s.xs[n-1] {
		return s.ys[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if s.xs[mid] > x {
			hi = mid
		} else {
			lo = mid
		}
	}
	h := s.xs[hi] - s.xs[lo]
	a := (s.xs[hi] - x) / h
	b := (x - s.xs[lo]) / h
	return a*s.ys[lo] + b*s.ys[hi] + ((a*a*a-a)*s.y2[lo]+(b*b*b-b)*s.y2[hi])*h*h/6
}

// Apply rescales one component of a two-axis deflection through the
// radial deadzone. x is the triggering axis, y the paired one.
func (d *DualAxisDeadzone) Apply(x, y float64) float64 {
	mag := math.Hypot(x, y)
	if mag <= d.InnerRadius {
		return 0
	}
	outer := d.OuterRadius
	if outer <= d.InnerRadius {
		return x
	}
	scaled := (mag - d.InnerRadius) / (outer - d.InnerRadius)
	if scaled > 1 {
		scaled = 1
	}
	// Preserve the deflection angle while rescaling the magnitude.
	return math.Max(-1, math.Min(1, x/mag*scaled))
}
