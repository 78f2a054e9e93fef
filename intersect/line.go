package intersect

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Line is a pair of points. Depending on the call it is read as an infinite
// line or as a bounded segment.
type Line struct {
	From r2.Vec
	To   r2.Vec
}

// LineIntersection intersects the infinite source line (a,b)-(c,d) with the
// line through (f,g)-(h,i), bounded by that second pair of points.
//
// The result is kept only when x lies within [f, h] and y within [h, i], both
// intervals unordered and closed. The y bound pairs h with i on purpose and
// callers rely on it. The result is then filtered by direction.
//
// Parallel, coincident and degenerate inputs produce no intersection.
func LineIntersection(
	direction Direction,

	// source line
	a, b float64,
	c, d float64,

	// bounded line
	f, g float64,
	h, i float64,
) (r2.Vec, bool) {
	x := (a*d*f - b*c*f - a*d*h + b*c*h - a*i*f + c*i*f + a*h*g - c*h*g) /
		(a*g - c*g - a*i + c*i - b*f + d*f + b*h - d*h)
	y := -(g*x - i*x + i*f - h*g) / (-f + h)

	if !isFinite(x) || !isFinite(y) {
		return r2.Vec{}, false
	}

	if !isBetweenUnordered(x, f, h) {
		return r2.Vec{}, false
	}

	if !isBetweenUnordered(y, h, i) {
		return r2.Vec{}, false
	}

	dot := (c-a)*(x-a) + (d-b)*(y-b)
	if !direction.accepts(dot) {
		return r2.Vec{}, false
	}

	return r2.Vec{X: x, Y: y}, true
}

// Segments is LineIntersection taking its points as lines.
func Segments(direction Direction, source Line, segment Line) (r2.Vec, bool) {
	return LineIntersection(direction,
		source.From.X, source.From.Y,
		source.To.X, source.To.Y,
		segment.From.X, segment.From.Y,
		segment.To.X, segment.To.Y,
	)
}

func isBetweenUnordered(v float64, bound1 float64, bound2 float64) bool {
	if bound1 > bound2 {
		bound1, bound2 = bound2, bound1
	}
	return v >= bound1 && v <= bound2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
