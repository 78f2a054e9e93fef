package intersect

import (
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var allDirections = []Direction{Any, Forwards, Backwards}

func TestLineIntersection(t *testing.T) {
	t.Run("crossing inside bounds", func(t *testing.T) {
		// y = x against the segment (0,2)-(2,0).
		p, ok := LineIntersection(Any, 0, 0, 1, 1, 0, 2, 2, 0)
		require.True(t, ok)
		require.InDelta(t, 1, p.X, 1e-9)
		require.InDelta(t, 1, p.Y, 1e-9)
	})

	t.Run("parallel lines", func(t *testing.T) {
		for _, d := range allDirections {
			_, ok := LineIntersection(d, 0, 0, 1, 1, 0, 1, 1, 2)
			require.False(t, ok, d.String())
		}
	})

	t.Run("coincident lines", func(t *testing.T) {
		for _, d := range allDirections {
			_, ok := LineIntersection(d, 0, 0, 1, 1, 0, 0, 2, 2)
			require.False(t, ok, d.String())
		}
	})

	t.Run("crossing outside bounds", func(t *testing.T) {
		// x = 5 crosses the segment (0,0)-(1,1) line at (5,5).
		for _, d := range allDirections {
			_, ok := LineIntersection(d, 5, 0, 5, 10, 0, 0, 1, 1)
			require.False(t, ok, d.String())
		}
	})

	t.Run("vertical bounded line", func(t *testing.T) {
		_, ok := LineIntersection(Any, 0, 0, 1, 0, 0.5, -1, 0.5, 1)
		require.False(t, ok)
	})

	t.Run("y is bounded by the second endpoint", func(t *testing.T) {
		// The lines cross at (1,1), inside the segment (0,0)-(2,2), but y is
		// checked against [2, 2].
		_, ok := LineIntersection(Any, 0, 2, 2, 0, 0, 0, 2, 2)
		require.False(t, ok)
	})

	t.Run("degenerate source line", func(t *testing.T) {
		_, ok := LineIntersection(Any, 1, 1, 1, 1, 0, 2, 2, 0)
		require.False(t, ok)
	})
}

func TestLineIntersectionDirection(t *testing.T) {
	// The segment (1,-1)-(0,1) crosses y = 0 at (0.5, 0).
	segment := [4]float64{1, -1, 0, 1}

	t.Run("crossing ahead", func(t *testing.T) {
		p, ok := LineIntersection(Forwards, 0, 0, 1, 0, segment[0], segment[1], segment[2], segment[3])
		require.True(t, ok)
		require.InDelta(t, 0.5, p.X, 1e-9)
		require.InDelta(t, 0, p.Y, 1e-9)

		_, ok = LineIntersection(Backwards, 0, 0, 1, 0, segment[0], segment[1], segment[2], segment[3])
		require.False(t, ok)

		_, ok = LineIntersection(Any, 0, 0, 1, 0, segment[0], segment[1], segment[2], segment[3])
		require.True(t, ok)
	})

	t.Run("crossing behind", func(t *testing.T) {
		_, ok := LineIntersection(Forwards, 1, 0, 2, 0, segment[0], segment[1], segment[2], segment[3])
		require.False(t, ok)

		p, ok := LineIntersection(Backwards, 1, 0, 2, 0, segment[0], segment[1], segment[2], segment[3])
		require.True(t, ok)
		require.InDelta(t, 0.5, p.X, 1e-9)

		_, ok = LineIntersection(Any, 1, 0, 2, 0, segment[0], segment[1], segment[2], segment[3])
		require.True(t, ok)
	})

	t.Run("crossing on the source start", func(t *testing.T) {
		for _, d := range allDirections {
			_, ok := LineIntersection(d, 0.5, 0, 1.5, 0, segment[0], segment[1], segment[2], segment[3])
			require.True(t, ok, d.String())
		}
	})
}

func TestSegments(t *testing.T) {
	p, ok := Segments(Any,
		Line{From: r2.Vec{X: 0, Y: 0}, To: r2.Vec{X: 1, Y: 1}},
		Line{From: r2.Vec{X: 0, Y: 2}, To: r2.Vec{X: 2, Y: 0}},
	)
	require.True(t, ok)
	require.InDelta(t, 1, p.X, 1e-9)
	require.InDelta(t, 1, p.Y, 1e-9)
}

func TestLineIntersectionConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p, ok := LineIntersection(Any, 0, 0, 1, 1, 0, 2, 2, 0)
				require.True(t, ok)
				require.InDelta(t, 1, p.X, 1e-9)
			}
		}()
	}
	wg.Wait()
}

func TestParseDirection(t *testing.T) {
	for _, d := range allDirections {
		parsed, err := ParseDirection(d.String())
		require.NoError(t, err)
		require.Equal(t, d, parsed)
	}

	d, err := ParseDirection("")
	require.NoError(t, err)
	require.Equal(t, Any, d)

	d, err = ParseDirection(" Forward ")
	require.NoError(t, err)
	require.Equal(t, Forwards, d)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeUnknownDirection))
}
