package geom

import (
	"math"

	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"gonum.org/v1/gonum/spatial/r3"
)

func EqualWithEpsilon(a float64, b float64, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func InRangeWithEpsilon(value float64, min float64, max float64, epsilon float64) bool {
	return value+epsilon >= min && value-epsilon <= max
}

// VecEqualWithEpsilon reports whether every component of a and b differ by at
// most epsilon.
func VecEqualWithEpsilon(a r3.Vec, b r3.Vec, epsilon float64) bool {
	return EqualWithEpsilon(a.X, b.X, epsilon) &&
		EqualWithEpsilon(a.Y, b.Y, epsilon) &&
		EqualWithEpsilon(a.Z, b.Z, epsilon)
}

func IsFinite(v r3.Vec) bool {
	return !math.IsInf(v.X, 0) && !math.IsNaN(v.X) &&
		!math.IsInf(v.Y, 0) && !math.IsNaN(v.Y) &&
		!math.IsInf(v.Z, 0) && !math.IsNaN(v.Z)
}

func Abs(v r3.Vec) r3.Vec {
	return r3.Vec{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

// Mod returns the per-axis floating-point remainder of v / size. Like
// math.Mod, each result takes the sign of the matching component of v.
func Mod(v r3.Vec, size float64) r3.Vec {
	return r3.Vec{X: math.Mod(v.X, size), Y: math.Mod(v.Y, size), Z: math.Mod(v.Z, size)}
}

type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// At returns the point reached after travelling t times the ray direction.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

func FromProtobuf(point *dagazpb.Point) r3.Vec {
	if point == nil {
		return r3.Vec{}
	}
	return r3.Vec{
		X: float64(point.X),
		Y: float64(point.Y),
		Z: float64(point.Z),
	}
}

func ToProtobuf(v r3.Vec) *dagazpb.Point {
	return &dagazpb.Point{
		X: float32(v.X),
		Y: float32(v.Y),
		Z: float32(v.Z),
	}
}

// RayFromProtobuf converts a from/to protobuf ray into an origin and a
// direction whose magnitude is the from/to distance.
func RayFromProtobuf(protoRay *dagazpb.Ray) Ray {
	from := FromProtobuf(protoRay.GetFrom())
	to := FromProtobuf(protoRay.GetTo())

	return Ray{
		Origin: from,
		Dir:    r3.Sub(to, from),
	}
}
