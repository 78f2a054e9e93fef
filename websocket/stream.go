// Package websocket streams grid casts point by point over WebSocket
// connections.
//
// A client opens a connection, sends one cast request, either JSON or a binary
// dagazpb.Ray, and then receives
// one frame per grid crossing, followed by a JSON summary frame. Points are
// binary dagazpb.Point protobuf messages by default, or JSON arrays when the
// request format is "json". Closing the connection stops the cast.
package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/aukilabs/rayfast/featureflag"
	"github.com/aukilabs/rayfast/geom"
	rayhttp "github.com/aukilabs/rayfast/http"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/protobuf/proto"
)

const (
	FormatProto = "proto"
	FormatJSON  = "json"

	ErrTypeInvalidFormat = "invalid_format"
	ErrTypeStreamFailed  = "stream_failed"

	defaultRequestTimeout = 10 * time.Second
)

type StreamRequest struct {
	rayhttp.CastRequest

	// The encoding of point frames: "proto" (default) or "json".
	Format string `json:"format,omitempty"`
}

// StreamSummary is the last frame of a successful stream.
type StreamSummary struct {
	Done      bool    `json:"done"`
	Points    int     `json:"points"`
	Length    float64 `json:"length"`
	Exhausted bool    `json:"exhausted"`
}

type StreamError struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

type StreamHandler struct {
	Limits       rayhttp.Limits
	FeatureFlags featureflag.FeatureFlag

	// The time given to a client to send its request after connecting.
	RequestTimeout time.Duration
}

// Server returns a WebSocket server running streams until ctx is done.
func (h *StreamHandler) Server(ctx context.Context) websocket.Server {
	return websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			h.Handle(ctx, conn)
		},
	}
}

// Handle runs a single stream on conn.
func (h *StreamHandler) Handle(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamID := uuid.NewString()
	logger := logs.WithTag("stream_id", streamID)

	if h.FeatureFlags.IsSet(featureflag.FlagDisableStreaming) {
		h.sendError(conn, streamID, errors.New("grid cast streaming is disabled").
			WithType(rayhttp.ErrTypeFeatureDisabled).
			WithTag("flag", featureflag.FlagDisableStreaming))
		return
	}

	req, err := h.receiveRequest(conn)
	if err != nil {
		h.sendError(conn, streamID, err)
		return
	}

	it, limit, err := req.Iterator(h.Limits, h.FeatureFlags)
	if err != nil {
		h.sendError(conn, streamID, err)
		return
	}

	wsActiveStreams.Inc()
	defer wsActiveStreams.Dec()

	logger.WithTag("variant", it.Variant().String()).
		WithTag("format", req.Format).
		WithTag("limit", limit).
		Info("grid cast stream started")

	// Anything read after the request, including the close frame, ends the
	// stream.
	go func() {
		defer cancel()

		var discard []byte
		websocket.Message.Receive(conn, &discard)
	}()

	sent := 0
	defer func() {
		wsStreamedPoints.WithLabelValues(req.Format).Add(float64(sent))
	}()

	overflow := false
	for sent < limit && it.HasNext() && ctx.Err() == nil {
		p, ok := it.NextFinite()
		if !ok {
			overflow = true
			break
		}

		if err := sendPoint(conn, req.Format, p); err != nil {
			if ctx.Err() == nil {
				wsStreamErrors.WithLabelValues(ErrTypeStreamFailed).Inc()
				logger.Debug(errors.New("sending grid point failed").
					WithType(ErrTypeStreamFailed).
					Wrap(err))
			}
			return
		}
		sent++
	}

	if ctx.Err() != nil {
		logger.WithTag("points", sent).Info("grid cast stream cancelled")
		return
	}

	summary := StreamSummary{
		Done:      true,
		Points:    sent,
		Length:    it.Length(),
		Exhausted: overflow || !it.HasNext(),
	}
	if err := sendJSON(conn, summary); err != nil {
		logger.Debug(errors.New("sending stream summary failed").Wrap(err))
		return
	}

	logger.WithTag("points", sent).
		WithTag("length", summary.Length).
		Info("grid cast stream done")
}

func (h *StreamHandler) receiveRequest(conn *websocket.Conn) (StreamRequest, error) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	var raw []byte
	if err := websocket.Message.Receive(conn, &raw); err != nil {
		return StreamRequest{}, errors.New("receiving stream request failed").
			WithType(rayhttp.ErrTypeInvalidRequest).
			Wrap(err)
	}

	if len(raw) != 0 && raw[0] != '{' {
		return decodeProtoRequest(raw)
	}

	var req StreamRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return StreamRequest{}, errors.New("decoding stream request failed").
			WithType(rayhttp.ErrTypeInvalidRequest).
			Wrap(err)
	}

	switch req.Format {
	case "":
		req.Format = FormatProto
	case FormatProto, FormatJSON:
	default:
		return StreamRequest{}, errors.New("unknown stream format").
			WithType(ErrTypeInvalidFormat).
			WithTag("format", req.Format)
	}
	return req, nil
}

// decodeProtoRequest reads a dagazpb.Ray request. The cast starts at From and
// its direction is To - From, with server defaults for everything else.
func decodeProtoRequest(raw []byte) (StreamRequest, error) {
	var protoRay dagazpb.Ray
	if err := proto.Unmarshal(raw, &protoRay); err != nil {
		return StreamRequest{}, errors.New("decoding protobuf stream request failed").
			WithType(rayhttp.ErrTypeInvalidRequest).
			Wrap(err)
	}

	ray := geom.RayFromProtobuf(&protoRay)
	return StreamRequest{
		CastRequest: rayhttp.CastRequest{
			Start: [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z},
			Dir:   [3]float64{ray.Dir.X, ray.Dir.Y, ray.Dir.Z},
		},
		Format: FormatProto,
	}, nil
}

func (h *StreamHandler) sendError(conn *websocket.Conn, streamID string, err error) {
	errType := errors.Type(err)
	wsStreamErrors.WithLabelValues(errType).Inc()

	logs.WithTag("stream_id", streamID).Debug(err)

	if err := sendJSON(conn, StreamError{Error: err.Error(), Type: errType}); err != nil {
		logs.WithTag("stream_id", streamID).
			Debug(errors.New("sending stream error failed").Wrap(err))
	}
}

func sendPoint(conn *websocket.Conn, format string, p r3.Vec) error {
	if format == FormatJSON {
		return sendJSON(conn, [3]float64{p.X, p.Y, p.Z})
	}

	b, err := proto.Marshal(geom.ToProtobuf(p))
	if err != nil {
		return err
	}
	return websocket.Message.Send(conn, b)
}

func sendJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return websocket.Message.Send(conn, string(b))
}
