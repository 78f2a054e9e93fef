// Package smoketest checks the geometry core against known answers, so that a
// running server can prove its build computes what clients expect.
package smoketest

import (
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/rayfast/geom"
	"github.com/aukilabs/rayfast/gridcast"
	"github.com/aukilabs/rayfast/intersect"
	"github.com/segmentio/encoding/json"
	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-9

type Check struct {
	Name string
	Run  func() error
}

type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Results struct {
	OK       bool          `json:"ok"`
	Checks   []CheckResult `json:"checks"`
	Duration time.Duration `json:"duration"`
}

// DefaultChecks returns the known-answer checks run by the smoke test.
func DefaultChecks() []Check {
	return []Check{
		{Name: "line_intersection_crossing", Run: checkCrossing},
		{Name: "line_intersection_parallel", Run: checkParallel},
		{Name: "line_intersection_direction", Run: checkDirection},
		{Name: "gridcast_first_step", Run: checkFirstStep},
		{Name: "gridcast_termination", Run: checkTermination},
	}
}

// Run runs every check and reports the outcome of each.
func Run(checks []Check) Results {
	start := time.Now()
	res := Results{
		OK:     true,
		Checks: make([]CheckResult, len(checks)),
	}

	for i, c := range checks {
		res.Checks[i] = CheckResult{Name: c.Name, OK: true}

		if err := c.Run(); err != nil {
			res.OK = false
			res.Checks[i].OK = false
			res.Checks[i].Error = err.Error()
		}
	}

	res.Duration = time.Since(start)
	return res
}

// HandleSmokeTest runs the checks and answers 200 when they all pass, 500
// otherwise.
func HandleSmokeTest(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := Run(checks)

		status := http.StatusOK
		if !res.OK {
			status = http.StatusInternalServerError
			logs.WithTag("results", res).
				Error(errors.New("smoke test failed"))
		}

		b, err := json.Marshal(res)
		if err != nil {
			logs.Warn(errors.New("encoding smoke test results failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

func checkCrossing() error {
	p, ok := intersect.LineIntersection(intersect.Any, 0, 0, 1, 1, 0, 2, 2, 0)
	if !ok {
		return errors.New("expected an intersection")
	}
	if !geom.EqualWithEpsilon(p.X, 1, epsilon) || !geom.EqualWithEpsilon(p.Y, 1, epsilon) {
		return errors.New("unexpected intersection point").
			WithTag("x", p.X).
			WithTag("y", p.Y)
	}
	return nil
}

func checkParallel() error {
	for _, d := range []intersect.Direction{intersect.Any, intersect.Forwards, intersect.Backwards} {
		if _, ok := intersect.LineIntersection(d, 0, 0, 1, 1, 0, 1, 1, 2); ok {
			return errors.New("parallel lines intersected").
				WithTag("direction", d.String())
		}
	}
	return nil
}

func checkDirection() error {
	if _, ok := intersect.LineIntersection(intersect.Forwards, 0, 0, 1, 0, 1, -1, 0, 1); !ok {
		return errors.New("forwards rejected a crossing ahead")
	}
	if _, ok := intersect.LineIntersection(intersect.Backwards, 0, 0, 1, 0, 1, -1, 0, 1); ok {
		return errors.New("backwards accepted a crossing ahead")
	}
	return nil
}

func checkFirstStep() error {
	start := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	dir := r3.Vec{X: 1}

	cells := gridcast.New(start, dir, 1, gridcast.Unbounded)
	if cell := cells.Next(); cell != (r3.Vec{X: 1}) {
		return errors.New("unexpected first cell").WithTag("cell", cell)
	}
	if cells.Length() != 0.5 {
		return errors.New("unexpected first step length").WithTag("length", cells.Length())
	}

	exact := gridcast.NewExact(start, dir, 1, gridcast.Unbounded)
	if p := exact.Next(); !geom.VecEqualWithEpsilon(p, r3.Vec{X: 1, Y: 0.5, Z: 0.5}, epsilon) {
		return errors.New("unexpected first exact point").WithTag("point", p)
	}
	return nil
}

func checkTermination() error {
	it := gridcast.New(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 1, 10)

	steps := 0
	for range it.All() {
		steps++
		if steps > 100 {
			return errors.New("traversal did not terminate")
		}
	}

	if it.Length() < 10 {
		return errors.New("traversal stopped early").WithTag("length", it.Length())
	}
	return nil
}
