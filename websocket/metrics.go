package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	formatLabel  = "format"
)

var (
	wsActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_gridcast_streams",
		Help: "The number of grid cast streams being sent.",
	})

	wsStreamedPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_streamed_gridcast_points",
		Help: "The number of grid points sent to WebSocket connections.",
	}, []string{
		formatLabel,
	})

	wsStreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_gridcast_stream_errors",
		Help: "The errors that occurred while streaming grid casts.",
	}, []string{
		errTypeLabel,
	})
)
