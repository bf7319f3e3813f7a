package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
	"visual-check/internal/capture"
	"visual-check/internal/checker"
	"visual-check/internal/storage"

	"golang.org/x/xerrors"
)

type Request struct {
	// Kind prefixes the keys of stored artifacts.
	Kind string

	// ActualURL is compared as is unless CaptureURL is set, in which case the
	// page is captured and stored first.
	ActualURL      string
	CaptureURL     string
	CaptureOptions capture.CaptureOptions

	// ExpectedURL may be empty, in which case only the capture is stored.
	ExpectedURL string
	Options     checker.Options
}

type Outcome struct {
	ActualURL string
	// Result is nil when there was nothing to compare against.
	Result *checker.Result
}

type Runner struct {
	Capturer capture.Capturer
	Storage  storage.Storage
	Now      func() time.Time
}

// Run captures the actual image when requested, compares it with the
// expected image and stores the diff of a failed comparison. A failed
// comparison returns the outcome together with a
// *verdict.ToleranceExceededError.
func (r *Runner) Run(ctx context.Context, request Request) (*Outcome, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	outcome := &Outcome{
		ActualURL: request.ActualURL,
	}

	if request.CaptureURL != "" {
		if r.Capturer == nil {
			return nil, xerrors.New("capture requested but no capturer is configured")
		}

		result, err := r.Capturer.Capture(ctx, request.CaptureURL, request.CaptureOptions)
		if err != nil {
			return nil, xerrors.Errorf("failed to capture %s: %w", request.CaptureURL, err)
		}

		h := sha256.New()
		h.Write([]byte(request.CaptureURL))
		urlHash := fmt.Sprintf("%x", h.Sum(nil))[:16]

		key := fmt.Sprintf("%s/capture/%s/%s.%s", request.Kind, urlHash, now().Format("20060102150405"), result.Format)
		url, err := r.Storage.Put(ctx, key, result.Screenshot)
		if err != nil {
			return nil, xerrors.Errorf("failed to upload screenshot: %w", err)
		}
		outcome.ActualURL = url
	}

	if request.ExpectedURL == "" {
		return outcome, nil
	}
	if outcome.ActualURL == "" {
		return nil, xerrors.New("neither an actual image nor a page to capture was given")
	}

	c, err := checker.New(r.Storage, request.Options)
	if err != nil {
		return nil, err
	}

	result, err := c.Check(ctx, outcome.ActualURL, request.ExpectedURL)
	if err != nil && !checker.IsToleranceExceeded(err) {
		return nil, err
	}
	outcome.Result = result

	if err != nil {
		key := checker.DiffKey(request.Kind, outcome.ActualURL, request.ExpectedURL, now())
		if _, saveErr := checker.SaveDiff(ctx, r.Storage, key, result); saveErr != nil {
			return nil, saveErr
		}
		return outcome, err
	}

	return outcome, nil
}
