package myhttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"
	"visual-check/internal/env"

	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
)

func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux

// HandleOperational registers the health and metrics endpoints, plus pprof
// when debug is set.
func (m *myRouter) HandleOperational(debug bool) {
	m.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(http.StatusText(http.StatusOK)))
	})

	m.Handle("GET /metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	))

	if debug {
		m.HandleFunc("GET /debug/pprof/", pprof.Index)
		m.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		m.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		m.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
		m.HandleFunc("GET /debug/pprof/profile", pyroscopepprof.Profile)
	}
}

type ServerConfig struct {
	Address                string
	TerminationGracePeriod time.Duration
	Lameduck               time.Duration
	KeepAlive              bool
	MaxConnections         int
}

func ServerConfigFromEnv(defaultAddress string) ServerConfig {
	return ServerConfig{
		Address:                env.OrDefault("ADDRESS", defaultAddress),
		TerminationGracePeriod: env.OrDefault("TERMINATION_GRACE_PERIOD", 10*time.Second),
		Lameduck:               env.OrDefault("LAMEDUCK", 1*time.Second),
		KeepAlive:              env.OrDefault("HTTP_KEEPALIVE", true),
		MaxConnections:         env.OrDefault("MAX_CONNECTIONS", 65532),
	}
}

// Serve serves handler on c.Address until SIGTERM arrives or ctx is done.
// It then keeps serving for the lameduck period, shuts the server down and
// runs cleanups in order.
func Serve(ctx context.Context, handler http.Handler, c ServerConfig, logger *slog.Logger, cleanups ...func(context.Context) error) error {
	listener, err := net.Listen("tcp", c.Address)
	if err != nil {
		return xerrors.Errorf("failed to listen on address %s: %w", c.Address, err)
	}

	server := &http.Server{
		Handler: handler,
	}
	server.SetKeepAlivesEnabled(c.KeepAlive)

	go func() {
		if err := server.Serve(netutil.LimitListener(listener, c.MaxConnections)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve HTTP", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	time.Sleep(c.Lameduck)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.TerminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	for _, cleanup := range cleanups {
		if err := cleanup(ctx); err != nil {
			return err
		}
	}

	return nil
}
