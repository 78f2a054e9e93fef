package http

import (
	"context"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

const (
	HeaderRequestID = "X-Request-Id"

	ErrTypeInvalidRequest  = "invalid_request"
	ErrTypeFeatureDisabled = "feature_disabled"

	maxRequestBodySize = 1 << 20
)

type requestIDKey struct{}

// WithRequestID gives every request an id, taken from the X-Request-Id header
// when the client sent a valid UUID, generated otherwise.
func WithRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the id set by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("decoding request body failed").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}
	return nil
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.WithTag("request_id", RequestID(r.Context())).
			Error(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errType := errors.Type(err)
	status := statusFromErrorType(errType)

	apiErrors.WithLabelValues(errType).Inc()

	logger := logs.WithTag("request_id", RequestID(r.Context())).
		WithTag("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		logger.Error(err)
	} else {
		logger.Debug(err)
	}

	writeResponse(w, r, status, errorResponse{
		Error: err.Error(),
		Type:  errType,
	})
}
