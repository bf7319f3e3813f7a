package checker_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"visual-check/internal/checker"
	"visual-check/internal/imageload"
	"visual-check/internal/storage"
	"visual-check/internal/verdict"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func solid(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / (width - 1)),
				G: uint8(y * 255 / (height - 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// checkerboard draws cells x cells squares of alternating gray levels.
func checkerboard(width, height, cells int, inverted bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cx, cy := x*cells/width, y*cells/height
			v := uint8(32 + (cx*37+cy*91)%192)
			if inverted {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir string, name string, img image.Image) string {
	t.Helper()

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFileStorage(t *testing.T, dir string) storage.Storage {
	t.Helper()

	s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type unavailableStorage struct{}

func (unavailableStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", errors.New("connection reset by peer")
}

func (unavailableStorage) Get(ctx context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("failed to download from S3: %w", errors.New("connection reset by peer"))
}

func TestChecker_Check(t *testing.T) {
	dir := t.TempDir()
	s := newFileStorage(t, dir)

	red := writePNG(t, dir, "red.png", solid(100, 100, color.RGBA{R: 255, A: 255}))
	redCopy := writePNG(t, dir, "red-copy.png", solid(100, 100, color.RGBA{R: 255, A: 255}))
	black := writePNG(t, dir, "black.png", solid(50, 50, color.RGBA{A: 255}))
	white := writePNG(t, dir, "white.png", solid(50, 50, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	board := writePNG(t, dir, "board.png", checkerboard(128, 128, 8, false))
	inverted := writePNG(t, dir, "inverted.png", checkerboard(128, 128, 8, true))
	large := writePNG(t, dir, "large.png", gradient(200, 200))
	small := writePNG(t, dir, "small.png", imageload.ResizeToMatch(gradient(200, 200), image.Pt(100, 100), imageload.FilterLanczos))

	type want struct {
		result  *checker.Result
		failed  bool
		message string
	}

	tests := []struct {
		name     string
		options  checker.Options
		actual   string
		expected string
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			checker.Options{Metric: verdict.MetricPHash},
			red,
			redCopy,
			want{
				result: &checker.Result{Metric: verdict.MetricPHash, Score: 0, Tolerance: 25, Passed: true},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			checker.Options{Metric: verdict.MetricRMS},
			red,
			redCopy,
			want{
				result: &checker.Result{Metric: verdict.MetricRMS, Score: 0, Tolerance: 10, Passed: true},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			checker.Options{Metric: verdict.MetricRMS, Tolerance: 0.001},
			red,
			redCopy,
			want{
				result: &checker.Result{Metric: verdict.MetricRMS, Score: 0, Tolerance: 0.001, Passed: true},
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			checker.Options{Metric: verdict.MetricRMS},
			black,
			white,
			want{
				failed:  true,
				message: "difference 441.67, tolerance 10.00",
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			checker.Options{},
			inverted,
			board,
			want{
				failed:  true,
				message: "tolerance 25)",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := checker.New(s, tt.options)
			if err != nil {
				t.Fatal(err)
			}

			got, err := c.Check(context.Background(), tt.actual, tt.expected)
			if tt.want.failed {
				var toleranceErr *verdict.ToleranceExceededError
				if !errors.As(err, &toleranceErr) {
					t.Fatalf("expected *ToleranceExceededError, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.want.message) {
					t.Errorf("expected %q in %q", tt.want.message, err.Error())
				}
				if got == nil || got.Passed || got.DiffImage == nil {
					t.Errorf("expected a failed result with a diff image, got %+v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want.result, got, cmpopts.IgnoreFields(checker.Result{}, "DiffImage")); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	t.Run("ResizedVariant", func(t *testing.T) {
		c, err := checker.New(s, checker.Options{Metric: verdict.MetricRMSLoose, Resize: true})
		if err != nil {
			t.Fatal(err)
		}

		got, err := c.Check(context.Background(), small, large)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Score > verdict.RMSLooseTolerance {
			t.Errorf("expected score <= %v, got %v", verdict.RMSLooseTolerance, got.Score)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		c, err := checker.New(s, checker.Options{})
		if err != nil {
			t.Fatal(err)
		}

		_, err = c.Check(context.Background(), filepath.Join(dir, "missing.png"), red)

		var loadErr *imageload.LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected *LoadError, got %v", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
		}
		if checker.IsToleranceExceeded(err) {
			t.Errorf("load failure reported as tolerance failure")
		}
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		c, err := checker.New(unavailableStorage{}, checker.Options{})
		if err != nil {
			t.Fatal(err)
		}

		_, err = c.Check(context.Background(), "s3://images/actual.png", "s3://images/expected.png")
		if err == nil {
			t.Fatal("expected error")
		}

		var loadErr *imageload.LoadError
		if errors.As(err, &loadErr) {
			t.Errorf("unreachable storage reported as a load failure: %v", err)
		}
		if !strings.Contains(err.Error(), "connection reset by peer") {
			t.Errorf("expected the storage error in %q", err)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		corrupt := filepath.Join(dir, "corrupt.png")
		if err := os.WriteFile(corrupt, []byte("not an image"), 0644); err != nil {
			t.Fatal(err)
		}

		c, err := checker.New(s, checker.Options{})
		if err != nil {
			t.Fatal(err)
		}

		var loadErr *imageload.LoadError
		if _, err := c.Check(context.Background(), red, corrupt); !errors.As(err, &loadErr) {
			t.Fatalf("expected *LoadError, got %v", err)
		}
	})
}

func TestChecker_CheckImages_SolidRed(t *testing.T) {
	c, err := checker.New(nil, checker.Options{})
	if err != nil {
		t.Fatal(err)
	}

	red := solid(100, 100, color.RGBA{R: 255, A: 255})
	got, err := c.CheckImages(red, solid(100, 100, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff("Hamming distance: 0", verdict.Describe(got.Metric, got.Score)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestChecker_CheckImages_GrayIsOneBand(t *testing.T) {
	c, err := checker.New(nil, checker.Options{Metric: verdict.MetricRMS, ColorMode: imageload.ColorModeGray, Tolerance: 500})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.CheckImages(solid(10, 10, color.Black), solid(10, 10, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(255.0, got.Score, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestChecker_CheckImages_SizeMismatchWithoutResize(t *testing.T) {
	c, err := checker.New(nil, checker.Options{Metric: verdict.MetricRMS, Tolerance: 500})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.CheckImages(solid(10, 10, color.White), solid(20, 10, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score <= 0 {
		t.Errorf("expected the uncovered half to count as difference, got %v", got.Score)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := checker.New(nil, checker.Options{Metric: "ssim"}); err == nil {
		t.Errorf("expected error for unknown metric")
	}
	for _, tolerance := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := checker.New(nil, checker.Options{Tolerance: tolerance}); err == nil {
			t.Errorf("expected error for tolerance %v", tolerance)
		}
	}
}

func TestSaveDiff(t *testing.T) {
	dir := t.TempDir()
	s := newFileStorage(t, dir)

	c, err := checker.New(s, checker.Options{Metric: verdict.MetricRMS})
	if err != nil {
		t.Fatal(err)
	}

	result, err := c.CheckImages(solid(10, 10, color.Black), solid(10, 10, color.White))
	if !checker.IsToleranceExceeded(err) {
		t.Fatalf("expected tolerance failure, got %v", err)
	}

	key := checker.DiffKey("ImageCheck", "a.png", "b.png", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if !strings.HasPrefix(key, "ImageCheck/diff/") || !strings.HasSuffix(key, "/20240102030405.png") {
		t.Errorf("unexpected key %s", key)
	}

	url, err := checker.SaveDiff(context.Background(), s, key, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != result.DiffURL {
		t.Errorf("expected DiffURL %s, got %s", url, result.DiffURL)
	}

	img, err := imageload.Open(url)
	if err != nil {
		t.Fatalf("failed to read diff back: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(10, 10) {
		t.Errorf("expected 10x10 diff, got %v", got)
	}

	if url, err := checker.SaveDiff(context.Background(), s, key, &checker.Result{Passed: true}); err != nil || url != "" {
		t.Errorf("expected nothing stored for a passing result, got %q, %v", url, err)
	}
}
