package runnable

import (
	"context"
	"net/http"
	"visual-check/internal/myhttp"
	"visual-check/internal/observability"
	"visual-check/internal/routes"
	"visual-check/internal/storage"

	"golang.org/x/xerrors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Server is the manager's API. It serves check artifacts to viewers and
// receives results from distributed workers.
type Server struct {
	config        myhttp.ServerConfig
	storageClient storage.Storage
	kubeConfig    *rest.Config
}

func NewServer(storageClient storage.Storage, kubeConfig *rest.Config) *Server {
	return &Server{
		config:        myhttp.ServerConfigFromEnv("0.0.0.0:8082"),
		storageClient: storageClient,
		kubeConfig:    kubeConfig,
	}
}

var Debug = false

func (s *Server) Start(ctx context.Context) error {
	telemetry, err := observability.Start(ctx, "visual-check-api", Debug)
	if err != nil {
		return err
	}

	httpRequestsDurationMicroSeconds, err := telemetry.Meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}

	kubeConfig := s.kubeConfig
	if kubeConfig == nil {
		kubeConfig, err = rest.InClusterConfig()
		if err != nil {
			return xerrors.Errorf("failed to create kubernetes config: %w", err)
		}
	}
	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return xerrors.Errorf("failed to create kubernetes clientset: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(kubeConfig)
	if err != nil {
		return xerrors.Errorf("failed to create kubernetes dynamic client: %w", err)
	}

	mux := myhttp.NewServerMux(telemetry.Logger, httpRequestsDurationMicroSeconds)
	Register(mux, dynamicClient, clientset, s.storageClient)
	mux.HandleOperational(Debug)

	return myhttp.Serve(ctx, mux, s.config, telemetry.Logger, telemetry.Shutdown)
}

type router interface {
	HandleFuncWithMiddleware(pattern string, handler http.HandlerFunc)
}

// Register mounts the API routes on mux.
func Register(mux router, dynamicClient dynamic.Interface, clientset kubernetes.Interface, storageClient storage.Storage) {
	mux.HandleFuncWithMiddleware("GET /api/{$}", routes.ListNamespaces(clientset))
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}", routes.ListResources(dynamicClient))
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}/{name}", routes.Read(dynamicClient))
	mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.ListArtifacts(dynamicClient, storageClient))
	mux.HandleFuncWithMiddleware("PATCH /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.UpdateArtifacts(dynamicClient))
	mux.HandleFuncWithMiddleware("POST /api/check", routes.Check(nil))
}
