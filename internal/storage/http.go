package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"visual-check/internal/retry"

	"golang.org/x/xerrors"
)

type httpStorage struct {
	client *http.Client
	config HTTPConfig
}

type HTTPConfig struct {
	Timeout time.Duration
	// MaxBytes bounds the size of a downloaded image.
	MaxBytes int64
	// Base is the transport wrapped by the retrying transport; nil means
	// http.DefaultTransport.
	Base http.RoundTripper
}

// NewHTTPStorage creates a read-only backend that downloads images over
// HTTP(S), retrying gateway errors and dropped connections.
func NewHTTPStorage(ctx context.Context, h HTTPConfig) (Storage, error) {
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	if h.MaxBytes <= 0 {
		h.MaxBytes = 64 << 20
	}

	return &httpStorage{
		client: &http.Client{
			Timeout: h.Timeout,
			Transport: &retry.Transport{
				Base:          h.Base,
				RetryStrategy: retry.NewExponentialBackOff(100*time.Millisecond, 2*time.Second, 3, nil),
				RetryOn:       retry.NewDefaultRetryOn(),
			},
		},
		config: h,
	}, nil
}

func (h *httpStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", xerrors.Errorf("http storage is read-only: cannot put %s", key)
}

func (h *httpStorage) Get(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	response, err := h.client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("failed to download %s: %w", url, &StatusError{StatusCode: response.StatusCode})
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, h.config.MaxBytes+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > h.config.MaxBytes {
		return nil, xerrors.Errorf("image at %s exceeds %d bytes", url, h.config.MaxBytes)
	}

	return data, nil
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
