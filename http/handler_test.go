package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HandleHealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1.2.3", w.Body.String())
}

func TestMetricsPathFormatter(t *testing.T) {
	require.Equal(t, "/gridcast", MetricsPathFormatter(http.StatusOK, "/gridcast"))
	require.Equal(t, "/gridcast", MetricsPathFormatter(http.StatusForbidden, "/gridcast"))
	require.Empty(t, MetricsPathFormatter(http.StatusNotFound, "/unknown"))
	require.Empty(t, MetricsPathFormatter(http.StatusBadRequest, "/gridcast"))
}
