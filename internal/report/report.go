package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
	"visual-check/internal/retry"

	"golang.org/x/xerrors"
)

// Payload is what a worker sends back once a check finished. BaselineURL is
// the image the actual image was compared with.
type Payload struct {
	Metric      string  `json:"metric"`
	Score       float64 `json:"score"`
	Tolerance   float64 `json:"tolerance"`
	Passed      bool    `json:"passed"`
	ActualURL   string  `json:"actualUrl"`
	BaselineURL string  `json:"baselineUrl,omitempty"`
	DiffURL     string  `json:"diffUrl,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// Artifacts is the part of the artifacts API response a worker needs to
// continue from the previous run.
type Artifacts struct {
	ActualURL string `json:"actualUrl,omitempty"`
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "callback returned " + http.StatusText(e.StatusCode)
}

// Client delivers payloads. The zero value uses http.DefaultTransport.
type Client struct {
	Base http.RoundTripper
}

// Callback sends payload as JSON to url with PATCH, retrying gateway and
// connection failures.
func (c *Client) Callback(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("failed to marshal payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client().Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &StatusError{StatusCode: response.StatusCode}
	}

	return nil
}

// Latest reads the artifacts of the previous run from url, the same URL
// results are sent to.
func (c *Client) Latest(ctx context.Context, url string) (*Artifacts, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	response, err := c.client().Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, &StatusError{StatusCode: response.StatusCode}
	}

	var artifacts Artifacts
	if err := json.NewDecoder(response.Body).Decode(&artifacts); err != nil {
		return nil, xerrors.Errorf("failed to decode artifacts: %w", err)
	}
	return &artifacts, nil
}

func (c *Client) client() *http.Client {
	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: 5 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          base,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}
}

func Callback(ctx context.Context, url string, payload any) error {
	return (&Client{}).Callback(ctx, url, payload)
}
