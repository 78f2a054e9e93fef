package picking

import (
	"testing"

	"github.com/aukilabs/rayfast/intersect"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

// wallAt returns a wall crossing y = 0 at x = k + 0.5, for k <= 0.
func wallAt(k float64) intersect.Line {
	return intersect.Line{
		From: r2.Vec{X: k + 1, Y: -1},
		To:   r2.Vec{X: k, Y: 1},
	}
}

func TestCastSegments(t *testing.T) {
	walls := []intersect.Line{wallAt(0), wallAt(-2), wallAt(-1)}

	t.Run("nearest ahead", func(t *testing.T) {
		source := intersect.Line{From: r2.Vec{X: -3}, To: r2.Vec{X: -2}}

		hit, ok := CastSegments(intersect.Forwards, source, walls)
		require.True(t, ok)
		require.Equal(t, 1, hit.Index)
		require.InDelta(t, -1.5, hit.Point.X, 1e-9)
		require.InDelta(t, 1.5, hit.Distance, 1e-9)
	})

	t.Run("nearest behind", func(t *testing.T) {
		source := intersect.Line{From: r2.Vec{X: 1}, To: r2.Vec{X: 2}}

		hit, ok := CastSegments(intersect.Backwards, source, walls)
		require.True(t, ok)
		require.Equal(t, 0, hit.Index)
		require.InDelta(t, 0.5, hit.Distance, 1e-9)

		_, ok = CastSegments(intersect.Forwards, source, walls)
		require.False(t, ok)
	})

	t.Run("any side", func(t *testing.T) {
		source := intersect.Line{From: r2.Vec{X: -0.75}, To: r2.Vec{X: 1}}

		hit, ok := CastSegments(intersect.Any, source, walls)
		require.True(t, ok)
		require.Equal(t, 2, hit.Index)
		require.InDelta(t, 0.25, hit.Distance, 1e-9)
	})

	t.Run("no walls", func(t *testing.T) {
		_, ok := CastSegments(intersect.Any, intersect.Line{To: r2.Vec{X: 1}}, nil)
		require.False(t, ok)
	})
}
