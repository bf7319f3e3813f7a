package capture

import (
	"context"
)

type CaptureOptions struct {
	Headers map[string]string
	// MaskSelectors are painted black before the screenshot is taken.
	MaskSelectors []string
	// ClipSelector limits the screenshot to the first element it matches.
	ClipSelector string
	// DeviceScaleFactor overrides the capturer's zoom when positive.
	DeviceScaleFactor float64
}

type CaptureResult struct {
	Screenshot []byte
	Format     string
}

type Capturer interface {
	Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error)
}
