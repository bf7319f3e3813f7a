package v1

import (
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// CaptureSpec describes a web page to render into the actual image
type CaptureSpec struct {
	// URL is the page to take a screenshot of
	URL string `json:"url"`
	// Headers are sent with every request of the page
	Headers map[string]string `json:"headers,omitempty"`
	// MaskSelectors are CSS selectors of elements painted black before capture
	MaskSelectors []string `json:"maskSelectors,omitempty"`
	// ClipSelector limits the screenshot to the first element it matches
	ClipSelector string `json:"clipSelector,omitempty"`
	// DeviceScaleFactor zooms the page, e.g. 2.5
	// +kubebuilder:validation:Minimum=0
	DeviceScaleFactor float64 `json:"deviceScaleFactor,omitempty"`
}

// CheckOptions configures how actual and expected images are compared
type CheckOptions struct {
	// Metric selects the similarity metric
	// +kubebuilder:validation:Enum=phash;rms;rms-loose
	// +kubebuilder:default="phash"
	Metric string `json:"metric,omitempty"`
	// Tolerance overrides the metric's default tolerance (25 for phash, 10 for rms, 50 for rms-loose)
	// +kubebuilder:validation:Minimum=0
	Tolerance float64 `json:"tolerance,omitempty"`
	// Resize resamples the actual image to the expected image's size before comparing
	Resize bool `json:"resize,omitempty"`
	// ColorMode converts both images before comparing
	// +kubebuilder:validation:Enum="";rgb;rgba;gray
	ColorMode string `json:"colorMode,omitempty"`
	// ResampleFilter is used when Resize is set
	// +kubebuilder:validation:Enum="";nearest;bilinear;catmullrom;lanczos
	ResampleFilter string `json:"resampleFilter,omitempty"`
}

// CheckStatus is the outcome of the latest comparison
type CheckStatus struct {
	// ActualURL is the storage URL of the compared actual image
	ActualURL string `json:"actualUrl,omitempty"`
	// DiffURL is the storage URL of the diff image of a failed comparison
	DiffURL string `json:"diffUrl,omitempty"`
	// Metric is the metric the score was computed with
	Metric string `json:"metric,omitempty"`
	// Score is the Hamming distance or RMS difference
	Score float64 `json:"score,omitempty"`
	// Tolerance is the threshold the score was compared against
	Tolerance float64 `json:"tolerance,omitempty"`
	// Passed is true when the score was within tolerance
	Passed bool `json:"passed,omitempty"`
	// Message describes the verdict or the error that prevented one
	Message string `json:"message,omitempty"`
	// LastCheckTime is the time when the last comparison finished
	LastCheckTime *metaV1.Time `json:"lastCheckTime,omitempty"`
}
