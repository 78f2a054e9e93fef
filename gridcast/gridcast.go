// Package gridcast walks a ray through a uniform 3D grid, one grid boundary
// crossing at a time.
//
// Each step advances the ray by the smallest parametric distance to the next
// grid boundary on any axis. The distance is measured in multiples of the
// direction vector, which is never normalized: a longer direction covers more
// space per unit of length.
package gridcast

import (
	"iter"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultGridSize is the cell size used by NewUnit.
	DefaultGridSize = 1.0

	// Unbounded is the maximum length used by NewUnit. A traversal with a
	// non-zero direction never reaches it.
	Unbounded = math.MaxFloat64

	ErrTypeInvalidGridSize = "invalid_grid_size"
	ErrTypeInvalidLength   = "invalid_length"
)

// Variant selects what an iterator emits after each step.
type Variant int

const (
	// Cell emits the grid-aligned corner of the reached cell, computed with a
	// floating remainder. Negative coordinates are therefore truncated toward
	// zero rather than floored.
	Cell Variant = iota

	// Exact emits the position where the ray crossed the grid boundary.
	Exact
)

func (v Variant) String() string {
	switch v {
	case Cell:
		return "cell"
	case Exact:
		return "exact"
	default:
		return "unknown"
	}
}

// Iterator is a forward-only cursor over the grid crossings of a ray. It is
// not safe for concurrent use and cannot be rewound: traversing again needs a
// new iterator.
//
// The grid size is not validated. A size lower or equal to zero produces NaN
// positions; use CheckParams beforehand when the values come from outside.
type Iterator struct {
	pos       r3.Vec
	dir       r3.Vec
	gridSize  float64
	maxLength float64
	length    float64
	variant   Variant
}

// NewUnit returns a cell iterator over a 1x1x1 grid that never runs out.
func NewUnit(start, dir r3.Vec) *Iterator {
	return New(start, dir, DefaultGridSize, Unbounded)
}

// New returns a cell iterator that stops once the traversed length reaches
// maxLength.
func New(start, dir r3.Vec, gridSize, maxLength float64) *Iterator {
	return NewWithVariant(Cell, start, dir, gridSize, maxLength)
}

// NewExact returns an iterator emitting exact boundary hit points that stops
// once the traversed length reaches maxLength.
func NewExact(start, dir r3.Vec, gridSize, maxLength float64) *Iterator {
	return NewWithVariant(Exact, start, dir, gridSize, maxLength)
}

func NewWithVariant(variant Variant, start, dir r3.Vec, gridSize, maxLength float64) *Iterator {
	return &Iterator{
		pos:       start,
		dir:       dir,
		gridSize:  gridSize,
		maxLength: maxLength,
		variant:   variant,
	}
}

// HasNext reports whether the traversed length is still below the maximum.
func (it *Iterator) HasNext() bool {
	return it.length < it.maxLength
}

// Next advances the ray to the next grid boundary and returns the emitted
// point. It does not check HasNext.
func (it *Iterator) Next() r3.Vec {
	it.step()
	return it.emit()
}

// Peek returns the point the next call to Next would emit and the length
// traversed at that point, without moving the cursor.
func (it *Iterator) Peek() (r3.Vec, float64) {
	next := *it
	return next.Next(), next.length
}

// NextFinite is Next for callers that cannot handle overflow. When the step
// would leave the ray at a non-finite position or length, it reports false
// and leaves the cursor where it was.
func (it *Iterator) NextFinite() (r3.Vec, bool) {
	next := *it
	p := next.Next()
	if !isFinite(next.pos) || math.IsInf(next.length, 0) {
		return r3.Vec{}, false
	}

	*it = next
	return p, true
}

// All returns the remaining points as a sequence. The sequence shares the
// iterator cursor: stopping early leaves the iterator where it stopped.
func (it *Iterator) All() iter.Seq[r3.Vec] {
	return func(yield func(r3.Vec) bool) {
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Take returns at most n of the remaining points.
func (it *Iterator) Take(n int) []r3.Vec {
	points := make([]r3.Vec, 0, max(min(n, 64), 0))
	for len(points) < n && it.HasNext() {
		points = append(points, it.Next())
	}
	return points
}

// Length returns the length traversed so far.
func (it *Iterator) Length() float64 {
	return it.length
}

// Position returns the exact current position of the ray.
func (it *Iterator) Position() r3.Vec {
	return it.pos
}

func (it *Iterator) Variant() Variant {
	return it.variant
}

func (it *Iterator) GridSize() float64 {
	return it.gridSize
}

func (it *Iterator) step() {
	// A zero direction component gives +Inf, which min never picks unless
	// every axis is zero.
	lengthX := it.remaining(it.pos.X, it.dir.X)
	lengthY := it.remaining(it.pos.Y, it.dir.Y)
	lengthZ := it.remaining(it.pos.Z, it.dir.Z)

	lowest := math.Min(lengthX, math.Min(lengthY, lengthZ))

	it.pos = r3.Vec{
		X: it.pos.X + it.dir.X*lowest,
		Y: it.pos.Y + it.dir.Y*lowest,
		Z: it.pos.Z + it.dir.Z*lowest,
	}
	it.length += lowest
}

func (it *Iterator) remaining(pos, dir float64) float64 {
	return (it.gridSize - math.Mod(math.Abs(pos), it.gridSize)) / math.Abs(dir)
}

func (it *Iterator) emit() r3.Vec {
	switch it.variant {
	case Exact:
		return it.pos
	default:
		return CellOf(it.pos, it.gridSize)
	}
}

func isFinite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// CellOf returns the corner of the cell holding p, as emitted by the Cell
// variant: p minus its floating remainder by gridSize on each axis.
func CellOf(p r3.Vec, gridSize float64) r3.Vec {
	return r3.Vec{
		X: p.X - math.Mod(p.X, gridSize),
		Y: p.Y - math.Mod(p.Y, gridSize),
		Z: p.Z - math.Mod(p.Z, gridSize),
	}
}

// CheckParams returns an error when gridSize or maxLength cannot drive a
// traversal.
func CheckParams(gridSize, maxLength float64) error {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return errors.New("grid size must be a positive finite number").
			WithType(ErrTypeInvalidGridSize).
			WithTag("grid_size", gridSize)
	}

	if math.IsNaN(maxLength) || maxLength < 0 {
		return errors.New("max length must be a positive number").
			WithType(ErrTypeInvalidLength).
			WithTag("max_length", maxLength)
	}
	return nil
}
