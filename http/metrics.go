package http

import (
	"net/http"

	"github.com/aukilabs/rayfast/gridcast"
	"github.com/aukilabs/rayfast/intersect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	directionLabel = "direction"
	resultLabel    = "result"
	variantLabel   = "variant"
	errTypeLabel   = "error_type"

	resultHit  = "hit"
	resultMiss = "miss"
)

var (
	intersections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rayfast_line_intersections",
		Help: "The number of line intersection requests.",
	}, []string{
		directionLabel,
		resultLabel,
	})

	castPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rayfast_gridcast_points",
		Help: "The number of grid points returned by grid casts.",
	}, []string{
		variantLabel,
	})

	castLength = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rayfast_gridcast_length",
		Help:    "The length traversed by grid casts.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{
		variantLabel,
	})

	picks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rayfast_picks",
		Help: "The number of voxel and wall picks.",
	}, []string{
		resultLabel,
	})

	apiErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rayfast_api_errors",
		Help: "The errors returned by the API.",
	}, []string{
		errTypeLabel,
	})
)

func statusFromErrorType(errType string) int {
	switch errType {
	case ErrTypeInvalidRequest,
		intersect.ErrTypeUnknownDirection,
		gridcast.ErrTypeInvalidGridSize,
		gridcast.ErrTypeInvalidLength:
		return http.StatusBadRequest

	case ErrTypeFeatureDisabled:
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}

func hitLabel(hit bool) string {
	if hit {
		return resultHit
	}
	return resultMiss
}
