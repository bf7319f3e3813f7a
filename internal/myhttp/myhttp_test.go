package myhttp

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestRouter(t *testing.T) *myRouter {
	t.Helper()

	histogram, err := noop.NewMeterProvider().Meter("test").Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		t.Fatal(err)
	}
	return NewServerMux(slog.New(slog.NewTextHandler(io.Discard, nil)), histogram)
}

func TestRouter(t *testing.T) {
	mux := newTestRouter(t)
	mux.HandleFuncWithMiddleware("GET /ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFuncWithMiddleware("GET /panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	mux.HandleOperational(false)

	tests := []struct {
		path       string
		statusCode int
	}{
		{"/ok", http.StatusOK},
		{"/panic", http.StatusInternalServerError},
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/debug/pprof/", http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if diff := cmp.Diff(tt.statusCode, recorder.Code); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestServerConfigFromEnv(t *testing.T) {
	t.Setenv("LAMEDUCK", "3s")
	t.Setenv("MAX_CONNECTIONS", "10")

	want := ServerConfig{
		Address:                "0.0.0.0:8383",
		TerminationGracePeriod: 10 * time.Second,
		Lameduck:               3 * time.Second,
		KeepAlive:              true,
		MaxConnections:         10,
	}
	if diff := cmp.Diff(want, ServerConfigFromEnv("0.0.0.0:8383")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestServe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	if err := listener.Close(); err != nil {
		t.Fatal(err)
	}

	mux := newTestRouter(t)
	mux.HandleOperational(false)

	ctx, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, mux, ServerConfig{
			Address:                address,
			TerminationGracePeriod: time.Second,
			KeepAlive:              true,
			MaxConnections:         4,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)), func(context.Context) error {
			close(cleaned)
			return nil
		})
	}()

	var response *http.Response
	for i := 0; i < 50; i++ {
		response, err = http.Get("http://" + address + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	_ = response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", response.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	select {
	case <-cleaned:
	default:
		t.Errorf("expected cleanup to run")
	}
}
