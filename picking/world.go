package picking

import (
	"sync"

	"github.com/aukilabs/rayfast/geom"
	"github.com/aukilabs/rayfast/gridcast"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxSteps bounds a pick when the caller passes an unbounded length.
const DefaultMaxSteps = 1 << 16

// Voxel is the content of an occupied cell.
type Voxel struct {
	Kind string `json:"kind"`
}

// Hit describes the first occupied cell found by a pick.
type Hit struct {
	// The corner of the occupied cell.
	Cell r3.Vec

	// Where the ray entered the cell. Equal to the ray origin when the ray
	// starts in the occupied cell.
	Point r3.Vec

	Voxel Voxel

	// The length traversed up to Point.
	Length float64

	// The number of grid boundaries crossed up to Point.
	Steps int
}

// World is a sparse uniform grid of occupied cells. Cells are keyed by their
// corner as returned by gridcast.CellOf.
type World struct {
	// The side length of a cell.
	GridSize float64

	// The maximum number of grid crossings visited by a pick. Zero means
	// DefaultMaxSteps.
	MaxSteps int

	mutex  sync.RWMutex
	voxels map[r3.Vec]Voxel
}

func NewWorld(gridSize float64) *World {
	if gridSize <= 0 {
		gridSize = gridcast.DefaultGridSize
	}

	return &World{
		GridSize: gridSize,
		voxels:   make(map[r3.Vec]Voxel),
	}
}

// Set fills the cell holding p and returns its corner.
func (w *World) Set(p r3.Vec, v Voxel) r3.Vec {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.voxels == nil {
		w.voxels = make(map[r3.Vec]Voxel)
	}

	cell := gridcast.CellOf(p, w.GridSize)
	w.voxels[cell] = v
	return cell
}

// Remove empties the cell holding p and reports whether it was occupied.
func (w *World) Remove(p r3.Vec) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	cell := gridcast.CellOf(p, w.GridSize)
	_, ok := w.voxels[cell]
	delete(w.voxels, cell)
	return ok
}

func (w *World) Get(p r3.Vec) (Voxel, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	v, ok := w.voxels[gridcast.CellOf(p, w.GridSize)]
	return v, ok
}

func (w *World) Len() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return len(w.voxels)
}

// Clear empties every cell.
func (w *World) Clear() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.voxels = make(map[r3.Vec]Voxel)
}

// Pick casts the ray through the grid and returns the first occupied cell it
// reaches before maxLength, starting with the cell the ray leaves the origin
// through.
//
// Cells are identified by the midpoint between two consecutive boundary
// crossings rather than by the crossing itself, which sits on the edge shared
// by the cell left and the cell entered. This keeps the entry point and length
// correct whatever the sign of the direction and of the coordinates.
func (w *World) Pick(ray geom.Ray, maxLength float64) (Hit, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if len(w.voxels) == 0 {
		return Hit{}, false
	}

	maxSteps := w.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	it := gridcast.NewExact(ray.Origin, ray.Dir, w.GridSize, maxLength)
	entry, length := ray.Origin, 0.0

	for steps := 0; ; steps++ {
		exit, _ := it.Peek()
		if !geom.IsFinite(exit) {
			return Hit{}, false
		}

		cell := gridcast.CellOf(r3.Scale(0.5, r3.Add(entry, exit)), w.GridSize)
		if v, ok := w.voxels[cell]; ok {
			return Hit{
				Cell:   cell,
				Point:  entry,
				Voxel:  v,
				Length: length,
				Steps:  steps,
			}, true
		}

		if steps == maxSteps || !it.HasNext() {
			return Hit{}, false
		}

		entry = it.Next()
		length = it.Length()
		if length > maxLength {
			return Hit{}, false
		}
	}
}
