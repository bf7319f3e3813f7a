package retry_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"runtime"
	"strings"
	"testing"
	"time"
	"visual-check/internal/retry"

	"github.com/google/go-cmp/cmp"
)

func TestRetrySleep(t *testing.T) {
	type want struct {
		first  time.Duration
		second bool
	}

	identity := func(i int64) int64 {
		return i
	}

	tests := []struct {
		name     string
		receiver retry.Strategy
		in       uint
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewNever(),
			0,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(time.Millisecond, time.Second, 0, identity),
			0,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(10*time.Millisecond, time.Second, 5, identity),
			0,
			want{10 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(10*time.Millisecond, time.Second, 5, identity),
			3,
			want{80 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(10*time.Millisecond, 50*time.Millisecond, 5, identity),
			4,
			want{50 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(10*time.Millisecond, time.Second, 5, identity),
			5,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(math.MaxInt64, math.MaxInt64, 100, identity),
			70,
			want{math.MaxInt64, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewExponentialBackOff(0, time.Second, 5, nil),
			1,
			want{0, false},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			first, second := tt.receiver.Sleep(tt.in)
			if diff := cmp.Diff(tt.want, want{first, second}, cmp.AllowUnexported(want{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

type temporaryError struct {
	s string
}

func (te *temporaryError) Error() string {
	return te.s
}

func (te *temporaryError) Temporary() bool {
	return true
}

func TestOn(t *testing.T) {
	type in struct {
		retryOn  string
		response *http.Response
		err      error
	}

	tests := []struct {
		name string
		in   in
		want bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"5xx", &http.Response{StatusCode: 500}, nil},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"gateway-error", &http.Response{StatusCode: 500}, nil},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"gateway-error", &http.Response{StatusCode: 503}, nil},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"retriable-4xx", &http.Response{StatusCode: 409}, nil},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"retriable-4xx", &http.Response{StatusCode: 404}, nil},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"429, gateway-error", &http.Response{StatusCode: 429}, nil},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"connect-failure", nil, io.EOF},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"connect-failure", nil, &temporaryError{"reset"}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"gateway-error", nil, io.EOF},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"connect-failure", nil, errors.New("permanent")},
			false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, err := retry.NewRetryOnFromString(tt.in.retryOn)
			if err != nil {
				t.Fatal(err)
			}

			var got bool
			if tt.in.response != nil {
				got = o.CheckResponse(tt.in.response)
			} else {
				got = o.CheckError(tt.in.err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRetryOnFromString_Invalid(t *testing.T) {
	if _, err := retry.NewRetryOnFromString("gateway-error,sometimes"); err == nil {
		t.Errorf("expected error for unknown condition")
	}
}

type transportMock struct {
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

func TestTransport(t *testing.T) {
	newClient := func(fake func(*http.Request) (*http.Response, error), maxRetryCount uint) *http.Client {
		return &http.Client{
			Transport: &retry.Transport{
				Base:          &transportMock{fakeRoundTrip: fake},
				RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, maxRetryCount, nil),
				RetryOn:       retry.NewDefaultRetryOn(),
			},
		}
	}

	t.Run("ReplaysBodyOnGatewayError", func(t *testing.T) {
		var bodies []string
		client := newClient(func(request *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(request.Body)
			bodies = append(bodies, string(b))
			status := http.StatusBadGateway
			if len(bodies) == 3 {
				status = http.StatusOK
			}
			return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
		}, 5)

		request, err := http.NewRequest(http.MethodPatch, "http://callback/", bytes.NewReader([]byte(`{"passed":true}`)))
		if err != nil {
			t.Fatal(err)
		}

		response, err := client.Do(request)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", response.StatusCode)
		}
		want := []string{`{"passed":true}`, `{"passed":true}`, `{"passed":true}`}
		if diff := cmp.Diff(want, bodies); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		attempts := 0
		client := newClient(func(request *http.Request) (*http.Response, error) {
			attempts++
			return nil, &temporaryError{"connection reset"}
		}, 2)

		request, err := http.NewRequest(http.MethodGet, "http://images/golden.png", nil)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := client.Do(request); err == nil {
			t.Fatalf("expected error")
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("DoesNotRetryPermanentErrors", func(t *testing.T) {
		attempts := 0
		client := newClient(func(request *http.Request) (*http.Response, error) {
			attempts++
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
		}, 5)

		request, err := http.NewRequest(http.MethodGet, "http://images/missing.png", nil)
		if err != nil {
			t.Fatal(err)
		}

		response, err := client.Do(request)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer response.Body.Close()

		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("StopsOnCancel", func(t *testing.T) {
		client := &http.Client{
			Transport: &retry.Transport{
				Base: &transportMock{fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
					return nil, io.EOF
				}},
				RetryStrategy: retry.NewExponentialBackOff(time.Hour, time.Hour, 5, func(i int64) int64 { return i }),
				RetryOn:       retry.NewDefaultRetryOn(),
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://images/golden.png", nil)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := client.Do(request); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
