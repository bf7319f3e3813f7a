package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"
	"visual-check/internal/capture"
	"visual-check/internal/checker"
	"visual-check/internal/pipeline"
	"visual-check/internal/storage"
	"visual-check/internal/verdict"

	"github.com/google/go-cmp/cmp"
)

type capturerMock struct {
	fakeCapture func(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error)
}

func (m *capturerMock) Capture(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
	return m.fakeCapture(ctx, url, options)
}

func encode(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, c)
		}
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func newRunner(t *testing.T, screenshot []byte) (*pipeline.Runner, storage.Storage) {
	t.Helper()

	s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	return &pipeline.Runner{
		Capturer: &capturerMock{
			fakeCapture: func(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
				if options.ClipSelector != "#FrameContainer" {
					t.Errorf("expected clip selector to be passed through, got %q", options.ClipSelector)
				}
				return &capture.CaptureResult{Screenshot: screenshot, Format: "png"}, nil
			},
		},
		Storage: s,
		Now: func() time.Time {
			return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		},
	}, s
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("CapturePassed", func(t *testing.T) {
		runner, s := newRunner(t, encode(t, color.White))
		expected, err := s.Put(ctx, "golden.png", encode(t, color.White))
		if err != nil {
			t.Fatal(err)
		}

		outcome, err := runner.Run(ctx, pipeline.Request{
			Kind:           "ImageCheck",
			CaptureURL:     "https://example.com/editor/",
			CaptureOptions: capture.CaptureOptions{ClipSelector: "#FrameContainer"},
			ExpectedURL:    expected,
			Options:        checker.Options{Metric: verdict.MetricRMS},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(outcome.ActualURL, "ImageCheck/capture/") || !strings.HasSuffix(outcome.ActualURL, "20240506070809.png") {
			t.Errorf("unexpected capture URL %s", outcome.ActualURL)
		}
		want := &checker.Result{Metric: verdict.MetricRMS, Score: 0, Tolerance: verdict.RMSTolerance, Passed: true}
		if diff := cmp.Diff(want, outcome.Result); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("FailedStoresDiff", func(t *testing.T) {
		runner, s := newRunner(t, nil)
		actual, err := s.Put(ctx, "actual.png", encode(t, color.Black))
		if err != nil {
			t.Fatal(err)
		}
		expected, err := s.Put(ctx, "golden.png", encode(t, color.White))
		if err != nil {
			t.Fatal(err)
		}

		outcome, err := runner.Run(ctx, pipeline.Request{
			Kind:        "ImageCheck",
			ActualURL:   actual,
			ExpectedURL: expected,
			Options:     checker.Options{Metric: verdict.MetricRMS},
		})

		var toleranceErr *verdict.ToleranceExceededError
		if !errors.As(err, &toleranceErr) {
			t.Fatalf("expected *ToleranceExceededError, got %v", err)
		}
		if outcome == nil || outcome.Result == nil || outcome.Result.Passed {
			t.Fatalf("expected failed result, got %+v", outcome)
		}
		if _, err := os.Stat(outcome.Result.DiffURL); err != nil {
			t.Errorf("expected diff at %s: %v", outcome.Result.DiffURL, err)
		}
	})

	t.Run("BaselineOnly", func(t *testing.T) {
		runner, _ := newRunner(t, encode(t, color.White))

		outcome, err := runner.Run(ctx, pipeline.Request{
			Kind:           "ScheduledImageCheck",
			CaptureURL:     "https://example.com/editor/",
			CaptureOptions: capture.CaptureOptions{ClipSelector: "#FrameContainer"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Result != nil {
			t.Errorf("expected no comparison, got %+v", outcome.Result)
		}
		if outcome.ActualURL == "" {
			t.Errorf("expected the capture to be stored")
		}
	})

	t.Run("NothingToCompare", func(t *testing.T) {
		runner, _ := newRunner(t, nil)

		if _, err := runner.Run(ctx, pipeline.Request{ExpectedURL: "golden.png"}); err == nil {
			t.Errorf("expected error")
		}
	})
}
