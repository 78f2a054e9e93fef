package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ListenAndServe runs the given servers until ctx is done, then gives them
// shutdownTimeout to drain their connections.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.Newf("shutting down the server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.Newf("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns an empty path for responses that did not reach
// a route, so that unknown paths do not create metric labels.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed ||
		statusCode == http.StatusRequestEntityTooLarge {
		return ""
	}

	return path
}
