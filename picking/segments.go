package picking

import (
	"math"

	"github.com/aukilabs/rayfast/intersect"
	"gonum.org/v1/gonum/spatial/r2"
)

// SegmentHit is the nearest wall crossed by a 2D cast.
type SegmentHit struct {
	Index    int
	Point    r2.Vec
	Distance float64
}

// CastSegments intersects the source line with every wall and returns the
// accepted intersection closest to the source start.
func CastSegments(direction intersect.Direction, source intersect.Line, walls []intersect.Line) (SegmentHit, bool) {
	best := SegmentHit{Index: -1, Distance: math.Inf(1)}

	for i, wall := range walls {
		p, ok := intersect.Segments(direction, source, wall)
		if !ok {
			continue
		}

		if d := r2.Norm(r2.Sub(p, source.From)); d < best.Distance {
			best = SegmentHit{
				Index:    i,
				Point:    p,
				Distance: d,
			}
		}
	}

	if best.Index < 0 {
		return SegmentHit{}, false
	}
	return best, true
}
