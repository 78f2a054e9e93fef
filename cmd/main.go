package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/rayfast/featureflag"
	rayhttp "github.com/aukilabs/rayfast/http"
	"github.com/aukilabs/rayfast/picking"
	"github.com/aukilabs/rayfast/smoketest"
	raywebsocket "github.com/aukilabs/rayfast/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The rayfast version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "rayfast_info",
		Help:        "Rayfast information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr            string        `cli:""        env:"RAYFAST_ADDR"              help:"Listening address for client requests."`
	AdminAddr       string        `cli:""        env:"RAYFAST_ADMIN_ADDR"        help:"Admin listening address."`
	LogLevel        string        `cli:""        env:"RAYFAST_LOG_LEVEL"         help:"Log level (debug|info|warning|error)."`
	LogIndent       bool          `cli:""        env:"RAYFAST_LOG_INDENT"        help:"Indent logs."`
	GridSize        float64       `cli:""        env:"RAYFAST_GRID_SIZE"         help:"The grid size used by casts that do not set one, and by the pick world."`
	MaxCastLength   float64       `cli:""        env:"RAYFAST_MAX_CAST_LENGTH"   help:"The maximum length traversed by a cast or a pick."`
	MaxPoints       int           `cli:""        env:"RAYFAST_MAX_POINTS"        help:"The maximum number of points returned by an HTTP grid cast."`
	MaxStreamPoints int           `cli:",hidden" env:"RAYFAST_MAX_STREAM_POINTS" help:"The maximum number of points sent by a streamed grid cast."`
	MaxPickSteps    int           `cli:",hidden" env:"RAYFAST_MAX_PICK_STEPS"    help:"The maximum number of grid crossings visited by a pick."`
	StreamTimeout   time.Duration `cli:",hidden" env:"RAYFAST_STREAM_TIMEOUT"    help:"Time given to a stream client to send its cast request."`
	ShutdownTimeout time.Duration `cli:",hidden" env:"RAYFAST_SHUTDOWN_TIMEOUT"  help:"Time given to servers to drain connections on exit."`
	FeatureFlags    []string      `cli:",hidden" env:"RAYFAST_FEATURE_FLAGS"     help:"Comma separated feature flags"`
	Version         bool          `cli:""        env:"-"                         help:"Show version."`
	Help            bool          `cli:""        env:"-"                         help:"Show help."`
}

func main() {
	conf := config{
		Addr:            ":4100",
		AdminAddr:       ":18191",
		LogLevel:        logs.InfoLevel.String(),
		GridSize:        1,
		MaxCastLength:   1024,
		MaxPoints:       1024,
		MaxStreamPoints: 1 << 16,
		MaxPickSteps:    picking.DefaultMaxSteps,
		StreamTimeout:   time.Second * 10,
		ShutdownTimeout: time.Second * 5,
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the rayfast geometry server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	flags := featureflag.New(conf.FeatureFlags)

	world := picking.NewWorld(conf.GridSize)
	world.MaxSteps = conf.MaxPickSteps

	limits := rayhttp.Limits{
		DefaultGridSize: conf.GridSize,
		MaxCastLength:   conf.MaxCastLength,
		MaxPoints:       conf.MaxPoints,
	}

	api := rayhttp.API{
		World:        world,
		FeatureFlags: flags,
		Limits:       limits,
	}

	streamLimits := limits
	streamLimits.MaxPoints = conf.MaxStreamPoints
	stream := raywebsocket.StreamHandler{
		Limits:         streamLimits,
		FeatureFlags:   flags,
		RequestTimeout: conf.StreamTimeout,
	}

	var service http.ServeMux
	api.Register(&service)
	service.Handle("GET /gridcast/stream", stream.Server(ctx))
	service.HandleFunc("GET /health", rayhttp.HandleHealthCheck)
	service.Handle("GET /version", rayhttp.HandleVersion(version))

	checks := smoketest.DefaultChecks()
	readinessCheck := func() bool {
		return smoketest.Run(checks).OK
	}

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", rayhttp.HandleHealthCheck)
	admin.HandleFunc("/ready", rayhttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(checks))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("grid_size", conf.GridSize).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting rayfast server")

	handler := rayhttp.WithRequestID(rayhttp.HandleWithCORS(&service))
	rayhttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(handler,
			rayhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if !(conf.GridSize > 0) {
		return errors.New("grid size must be positive").
			WithTag("grid_size", conf.GridSize)
	}

	if conf.MaxCastLength < 0 {
		return errors.New("max cast length must not be negative").
			WithTag("max_cast_length", conf.MaxCastLength)
	}

	if conf.MaxPoints <= 0 || conf.MaxStreamPoints <= 0 {
		return errors.New("max points must be positive").
			WithTag("max_points", conf.MaxPoints).
			WithTag("max_stream_points", conf.MaxStreamPoints)
	}

	return nil
}
