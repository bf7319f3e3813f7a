package main

import (
	"context"
	"log"
	"visual-check/internal/env"
	"visual-check/internal/myhttp"
	"visual-check/internal/observability"
	"visual-check/internal/routes"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/xerrors"
)

type Server struct {
	config myhttp.ServerConfig
}

func NewServer() *Server {
	return &Server{
		config: myhttp.ServerConfigFromEnv("0.0.0.0:8383"),
	}
}

var Debug = false

func (s *Server) Start(ctx context.Context) error {
	telemetry, err := observability.Start(ctx, "check-server", Debug)
	if err != nil {
		return err
	}

	httpRequestsDurationMicroSeconds, err := telemetry.Meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}
	checkMetrics, err := newCheckMetrics(telemetry.Meter)
	if err != nil {
		return err
	}

	mux := myhttp.NewServerMux(telemetry.Logger, httpRequestsDurationMicroSeconds)
	mux.HandleFuncWithMiddleware("POST /check", routes.Check(checkMetrics))
	mux.HandleOperational(Debug)

	return myhttp.Serve(ctx, mux, s.config, telemetry.Logger, telemetry.Shutdown)
}

func newCheckMetrics(meter metric.Meter) (*routes.CheckMetrics, error) {
	total, err := meter.Int64Counter("image_check_total", metric.WithDescription("Number of completed image checks"))
	if err != nil {
		return nil, xerrors.Errorf("failed to create counter: %w", err)
	}
	score, err := meter.Float64Histogram("image_check_score", metric.WithDescription("Hamming distance or RMS difference of completed image checks"))
	if err != nil {
		return nil, xerrors.Errorf("failed to create histogram: %w", err)
	}

	return &routes.CheckMetrics{
		Total: total,
		Score: score,
	}, nil
}

func main() {
	if err := env.Load(".env"); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	Debug = env.OrDefault("DEBUG", false)

	ctx := context.Background()

	server := NewServer()
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
