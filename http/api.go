package http

import (
	"math"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/rayfast/featureflag"
	"github.com/aukilabs/rayfast/geom"
	"github.com/aukilabs/rayfast/gridcast"
	"github.com/aukilabs/rayfast/intersect"
	"github.com/aukilabs/rayfast/picking"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxPoints is the number of points a cast returns when Limits does
// not set one.
const DefaultMaxPoints = 1024

// Limits bounds the work a single request can ask for.
type Limits struct {
	// The grid size used when a request does not set one.
	DefaultGridSize float64

	// The maximum traversal length of a cast or a pick. Also used when a
	// request does not set one.
	MaxCastLength float64

	// The maximum number of points returned by a cast.
	MaxPoints int
}

// API serves the geometry endpoints.
type API struct {
	World        *picking.World
	FeatureFlags featureflag.FeatureFlag
	Limits       Limits
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /intersect", a.HandleIntersect)
	mux.HandleFunc("POST /gridcast", a.HandleGridCast)
	mux.HandleFunc("POST /voxels", a.HandleSetVoxels)
	mux.HandleFunc("DELETE /voxels", a.HandleClearVoxels)
	mux.HandleFunc("POST /pick", a.HandlePick)
	mux.HandleFunc("POST /walls/cast", a.HandleCastWalls)
}

type IntersectRequest struct {
	Direction string     `json:"direction"`
	Source    [4]float64 `json:"source"`
	Segment   [4]float64 `json:"segment"`
}

type IntersectResponse struct {
	Hit   bool        `json:"hit"`
	Point *[2]float64 `json:"point,omitempty"`
}

func (a *API) HandleIntersect(w http.ResponseWriter, r *http.Request) {
	var req IntersectRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	direction, err := intersect.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, b := req.Source, req.Segment
	p, ok := intersect.LineIntersection(direction,
		s[0], s[1], s[2], s[3],
		b[0], b[1], b[2], b[3],
	)
	intersections.WithLabelValues(direction.String(), hitLabel(ok)).Inc()

	res := IntersectResponse{Hit: ok}
	if ok {
		res.Point = &[2]float64{p.X, p.Y}
	}
	writeResponse(w, r, http.StatusOK, res)
}

// CastRequest describes a grid traversal. Zero values for GridSize, MaxLength
// and Limit select the server defaults.
type CastRequest struct {
	Start     [3]float64 `json:"start"`
	Dir       [3]float64 `json:"dir"`
	GridSize  float64    `json:"grid_size,omitempty"`
	MaxLength float64    `json:"max_length,omitempty"`
	Exact     bool       `json:"exact,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// Iterator checks the request against the limits and feature flags, then
// returns the iterator it describes with the number of points it may emit.
func (req CastRequest) Iterator(limits Limits, flags featureflag.FeatureFlag) (*gridcast.Iterator, int, error) {
	if req.Exact && flags.IsSet(featureflag.FlagDisableExactCast) {
		return nil, 0, errors.New("exact grid casts are disabled").
			WithType(ErrTypeFeatureDisabled).
			WithTag("flag", featureflag.FlagDisableExactCast)
	}

	if err := checkRay(req.Start, req.Dir); err != nil {
		return nil, 0, err
	}

	gridSize := req.GridSize
	if gridSize == 0 {
		gridSize = limits.DefaultGridSize
	}

	maxLength := limits.clampLength(req.MaxLength)
	if err := gridcast.CheckParams(gridSize, maxLength); err != nil {
		return nil, 0, err
	}

	maxPoints := limits.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	limit := req.Limit
	if limit <= 0 || limit > maxPoints {
		limit = maxPoints
	}

	variant := gridcast.Cell
	if req.Exact {
		variant = gridcast.Exact
	}

	it := gridcast.NewWithVariant(variant, vec3(req.Start), vec3(req.Dir), gridSize, maxLength)
	if first, length := it.Peek(); !geom.IsFinite(first) || math.IsInf(length, 0) {
		return nil, 0, errors.New("grid size is too large for the ray direction").
			WithType(ErrTypeInvalidRequest).
			WithTag("grid_size", gridSize).
			WithTag("dir", req.Dir)
	}
	return it, limit, nil
}

type CastResponse struct {
	Points    [][3]float64 `json:"points"`
	Length    float64      `json:"length"`
	Exhausted bool         `json:"exhausted"`
}

func (a *API) HandleGridCast(w http.ResponseWriter, r *http.Request) {
	var req CastRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	it, limit, err := req.Iterator(a.Limits, a.FeatureFlags)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, overflow := takeFinite(it, limit)
	res := CastResponse{
		Points:    make([][3]float64, len(points)),
		Length:    it.Length(),
		Exhausted: overflow || !it.HasNext(),
	}
	for i, p := range points {
		res.Points[i] = arr3(p)
	}

	variant := it.Variant().String()
	castPoints.WithLabelValues(variant).Add(float64(len(points)))
	castLength.WithLabelValues(variant).Observe(it.Length())

	logs.WithTag("request_id", RequestID(r.Context())).
		WithTag("variant", variant).
		WithTag("points", len(points)).
		Debug("grid cast done")

	writeResponse(w, r, http.StatusOK, res)
}

// takeFinite returns at most n of the remaining points. It stops early and
// reports true when the traversal overflows to non-finite coordinates.
func takeFinite(it *gridcast.Iterator, n int) ([]r3.Vec, bool) {
	points := make([]r3.Vec, 0, min(n, 64))
	for len(points) < n && it.HasNext() {
		p, ok := it.NextFinite()
		if !ok {
			return points, true
		}
		points = append(points, p)
	}
	return points, false
}

type VoxelInput struct {
	Position [3]float64 `json:"position"`
	Kind     string     `json:"kind"`
}

type SetVoxelsRequest struct {
	Voxels []VoxelInput `json:"voxels"`
}

type SetVoxelsResponse struct {
	Cells [][3]float64 `json:"cells"`
	Count int          `json:"count"`
}

func (a *API) HandleSetVoxels(w http.ResponseWriter, r *http.Request) {
	if err := a.checkPicking(); err != nil {
		writeError(w, r, err)
		return
	}

	var req SetVoxelsRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	for i, v := range req.Voxels {
		if err := checkFinite(v.Position[:]...); err != nil {
			writeError(w, r, errors.New("invalid voxel position").
				WithType(ErrTypeInvalidRequest).
				WithTag("index", i).
				Wrap(err))
			return
		}
	}

	res := SetVoxelsResponse{
		Cells: make([][3]float64, len(req.Voxels)),
	}
	for i, v := range req.Voxels {
		cell := a.World.Set(vec3(v.Position), picking.Voxel{Kind: v.Kind})
		res.Cells[i] = arr3(cell)
	}
	res.Count = a.World.Len()

	writeResponse(w, r, http.StatusOK, res)
}

func (a *API) HandleClearVoxels(w http.ResponseWriter, r *http.Request) {
	if err := a.checkPicking(); err != nil {
		writeError(w, r, err)
		return
	}

	a.World.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type PickRequest struct {
	Origin    [3]float64 `json:"origin"`
	Dir       [3]float64 `json:"dir"`
	MaxLength float64    `json:"max_length,omitempty"`
}

type PickResponse struct {
	Hit    bool        `json:"hit"`
	Cell   *[3]float64 `json:"cell,omitempty"`
	Point  *[3]float64 `json:"point,omitempty"`
	Kind   string      `json:"kind,omitempty"`
	Length float64     `json:"length,omitempty"`
	Steps  int         `json:"steps,omitempty"`
}

func (a *API) HandlePick(w http.ResponseWriter, r *http.Request) {
	if err := a.checkPicking(); err != nil {
		writeError(w, r, err)
		return
	}

	var req PickRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := checkRay(req.Origin, req.Dir); err != nil {
		writeError(w, r, err)
		return
	}

	ray := geom.Ray{Origin: vec3(req.Origin), Dir: vec3(req.Dir)}
	hit, ok := a.World.Pick(ray, a.Limits.clampLength(req.MaxLength))
	picks.WithLabelValues(hitLabel(ok)).Inc()

	res := PickResponse{Hit: ok}
	if ok {
		cell, point := arr3(hit.Cell), arr3(hit.Point)
		res.Cell = &cell
		res.Point = &point
		res.Kind = hit.Voxel.Kind
		res.Length = hit.Length
		res.Steps = hit.Steps
	}
	writeResponse(w, r, http.StatusOK, res)
}

type CastWallsRequest struct {
	Direction string       `json:"direction"`
	Source    [4]float64   `json:"source"`
	Walls     [][4]float64 `json:"walls"`
}

type CastWallsResponse struct {
	Hit      bool        `json:"hit"`
	Index    int         `json:"index"`
	Point    *[2]float64 `json:"point,omitempty"`
	Distance float64     `json:"distance,omitempty"`
}

func (a *API) HandleCastWalls(w http.ResponseWriter, r *http.Request) {
	if err := a.checkPicking(); err != nil {
		writeError(w, r, err)
		return
	}

	var req CastWallsRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	direction, err := intersect.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}

	walls := make([]intersect.Line, len(req.Walls))
	for i, wall := range req.Walls {
		walls[i] = line(wall)
	}

	hit, ok := picking.CastSegments(direction, line(req.Source), walls)
	picks.WithLabelValues(hitLabel(ok)).Inc()

	res := CastWallsResponse{Hit: ok, Index: -1}
	if ok {
		res.Index = hit.Index
		res.Point = &[2]float64{hit.Point.X, hit.Point.Y}
		res.Distance = hit.Distance
	}
	writeResponse(w, r, http.StatusOK, res)
}

func (a *API) checkPicking() error {
	if a.World == nil || a.FeatureFlags.IsSet(featureflag.FlagDisablePicking) {
		return errors.New("picking is disabled").
			WithType(ErrTypeFeatureDisabled).
			WithTag("flag", featureflag.FlagDisablePicking)
	}
	return nil
}

// clampLength returns the length a request may traverse. Without a
// configured maximum, requests without a length are unbounded.
func (l Limits) clampLength(length float64) float64 {
	switch {
	case l.MaxCastLength <= 0 && length <= 0:
		return gridcast.Unbounded
	case l.MaxCastLength <= 0:
		return length
	case length <= 0 || length > l.MaxCastLength:
		return l.MaxCastLength
	default:
		return length
	}
}

func checkRay(origin, dir [3]float64) error {
	if err := checkFinite(origin[:]...); err != nil {
		return errors.New("invalid ray origin").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}

	if err := checkFinite(dir[:]...); err != nil {
		return errors.New("invalid ray direction").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}

	if dir == [3]float64{} {
		return errors.New("ray direction is zero").
			WithType(ErrTypeInvalidRequest)
	}
	return nil
}

func checkFinite(values ...float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("value is not finite").
				WithType(ErrTypeInvalidRequest).
				WithTag("index", i)
		}
	}
	return nil
}

func vec3(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func arr3(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func line(a [4]float64) intersect.Line {
	return intersect.Line{
		From: r2.Vec{X: a[0], Y: a[1]},
		To:   r2.Vec{X: a[2], Y: a[3]},
	}
}
