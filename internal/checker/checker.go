package checker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"time"
	diffimage "visual-check/internal/diff/image"
	"visual-check/internal/imageload"
	"visual-check/internal/storage"
	"visual-check/internal/verdict"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Options struct {
	Metric verdict.Metric
	// Tolerance overrides the metric's default tolerance when positive.
	Tolerance float64
	ColorMode imageload.ColorMode
	// Resize resamples the actual image to the expected image's size before
	// scoring.
	Resize bool
	Filter imageload.Filter
}

type Result struct {
	Metric    verdict.Metric `json:"metric"`
	Score     float64        `json:"score"`
	Tolerance float64        `json:"tolerance"`
	Passed    bool           `json:"passed"`
	DiffURL   string         `json:"diffUrl,omitempty"`

	// DiffImage visualises the difference. It is only set when the check
	// failed.
	DiffImage image.Image `json:"-"`
}

type Checker struct {
	storage   storage.Storage
	options   Options
	differ    diffimage.Differ
	highlight diffimage.Differ
}

func New(s storage.Storage, o Options) (*Checker, error) {
	if o.Metric == "" {
		o.Metric = verdict.MetricPHash
	}
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) {
		return nil, xerrors.Errorf("tolerance must be a finite non-negative number: %v", o.Tolerance)
	}
	if o.Tolerance == 0 {
		o.Tolerance = o.Metric.DefaultTolerance()
	}
	if o.Filter == "" {
		o.Filter = imageload.FilterLanczos
	}

	var differ diffimage.Differ
	switch o.Metric {
	case verdict.MetricPHash:
		differ = diffimage.NewPHashDiff()
	case verdict.MetricRMS, verdict.MetricRMSLoose:
		differ = diffimage.NewRMSDiff()
	default:
		return nil, xerrors.Errorf("unknown metric: %s", o.Metric)
	}

	return &Checker{
		storage:   s,
		options:   o,
		differ:    differ,
		highlight: diffimage.NewHighlight(0.1),
	}, nil
}

func (c *Checker) Options() Options {
	return c.options
}

// Check fetches both images from storage and compares them. When the
// images are too different it returns the result together with a
// *verdict.ToleranceExceededError.
func (c *Checker) Check(ctx context.Context, actualURL string, expectedURL string) (*Result, error) {
	var actual, expected image.Image

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		img, err := c.load(ctx, actualURL)
		if err != nil {
			return err
		}
		actual = img
		return nil
	})
	eg.Go(func() error {
		img, err := c.load(ctx, expectedURL)
		if err != nil {
			return err
		}
		expected = img
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return c.CheckImages(actual, expected)
}

func (c *Checker) load(ctx context.Context, url string) (image.Image, error) {
	if c.storage == nil {
		return imageload.Open(url)
	}

	data, err := c.storage.Get(ctx, url)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, &imageload.LoadError{Path: url, Err: err}
		}
		return nil, xerrors.Errorf("failed to fetch %s: %w", url, err)
	}
	return imageload.DecodeNamed(url, data)
}

// CheckImages compares two decoded images.
func (c *Checker) CheckImages(actual image.Image, expected image.Image) (*Result, error) {
	actual = imageload.Convert(actual, c.options.ColorMode)
	expected = imageload.Convert(expected, c.options.ColorMode)

	if c.options.Resize {
		actual = imageload.ResizeToMatch(actual, expected.Bounds().Size(), c.options.Filter)
	}

	diffResult := c.differ.Calculate(expected, actual)

	result := &Result{
		Metric:    c.options.Metric,
		Score:     diffResult.DiffAmount,
		Tolerance: c.options.Tolerance,
	}

	err := verdict.Evaluate(result.Metric, result.Score, result.Tolerance)
	result.Passed = err == nil
	if err != nil {
		result.DiffImage = diffResult.Image
		if result.DiffImage == nil {
			result.DiffImage = c.highlight.Calculate(expected, actual).Image
		}
		return result, err
	}

	return result, nil
}

// SaveDiff encodes the diff image of a failed result as PNG and stores it
// under key. It returns an empty URL when there is nothing to store.
func SaveDiff(ctx context.Context, s storage.Storage, key string, result *Result) (string, error) {
	if result == nil || result.DiffImage == nil {
		return "", nil
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, result.DiffImage); err != nil {
		return "", xerrors.Errorf("failed to encode diff image: %w", err)
	}

	url, err := s.Put(ctx, key, buffer.Bytes())
	if err != nil {
		return "", xerrors.Errorf("failed to save diff image: %w", err)
	}
	result.DiffURL = url

	return url, nil
}

// DiffKey names the diff artifact of comparing actualURL with expectedURL
// at now.
func DiffKey(kind string, actualURL string, expectedURL string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(actualURL + expectedURL))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	return fmt.Sprintf("%s/diff/%s/%s.png", kind, hash, now.Format("20060102150405"))
}

// IsToleranceExceeded reports whether err is a failed verdict rather than a
// load or storage problem.
func IsToleranceExceeded(err error) bool {
	var toleranceErr *verdict.ToleranceExceededError
	return errors.As(err, &toleranceErr)
}
