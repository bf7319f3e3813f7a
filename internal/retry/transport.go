package retry

import (
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests that RetryOn accepts, waiting as RetryStrategy
// says between attempts. Requests with a body are only retried when
// GetBody is set, which http.NewRequest does for in-memory bodies.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	for retryCount := uint(0); ; retryCount++ {
		attempt := request
		if retryCount > 0 {
			rewound, err := rewind(request)
			if err != nil {
				return nil, err
			}
			attempt = rewound
		}

		sleep, exceeded := t.retryStrategy().Sleep(retryCount)
		canRetry := !exceeded && t.RetryOn != nil && (request.Body == nil || request.GetBody != nil)

		response, err := t.base().RoundTrip(attempt)
		if err != nil {
			if !canRetry || !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if !canRetry || !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			_, _ = io.Copy(io.Discard, response.Body)
			response.Body.Close()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.GetBody == nil {
		return request, nil
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
