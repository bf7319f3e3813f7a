package controllers

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	vcV1 "visual-check/api/v1"
	"visual-check/internal/capture"
	"visual-check/internal/checker"
	"visual-check/internal/imageload"
	"visual-check/internal/pipeline"
	"visual-check/internal/verdict"

	coreV1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
)

func checkerOptions(o vcV1.CheckOptions) (checker.Options, error) {
	metric, err := verdict.ParseMetric(o.Metric)
	if err != nil {
		return checker.Options{}, err
	}
	colorMode, err := imageload.ParseColorMode(o.ColorMode)
	if err != nil {
		return checker.Options{}, err
	}
	filter, err := imageload.ParseFilter(o.ResampleFilter)
	if err != nil {
		return checker.Options{}, err
	}

	return checker.Options{
		Metric:    metric,
		Tolerance: o.Tolerance,
		ColorMode: colorMode,
		Resize:    o.Resize,
		Filter:    filter,
	}, nil
}

func captureOptions(c *vcV1.CaptureSpec) capture.CaptureOptions {
	if c == nil {
		return capture.CaptureOptions{}
	}
	return capture.CaptureOptions{
		Headers:           c.Headers,
		MaskSelectors:     c.MaskSelectors,
		ClipSelector:      c.ClipSelector,
		DeviceScaleFactor: c.DeviceScaleFactor,
	}
}

// applyOutcome records a finished comparison. err is nil or the
// *verdict.ToleranceExceededError of a failed comparison.
func applyOutcome(status *vcV1.CheckStatus, outcome *pipeline.Outcome, err error, now time.Time) {
	checkTime := metaV1.NewTime(now)
	status.LastCheckTime = &checkTime
	status.ActualURL = outcome.ActualURL

	result := outcome.Result
	if result == nil {
		status.Metric = ""
		status.Score = 0
		status.Tolerance = 0
		status.Passed = false
		status.DiffURL = ""
		status.Message = "Baseline recorded"
		return
	}

	status.Metric = string(result.Metric)
	status.Score = result.Score
	status.Tolerance = result.Tolerance
	status.Passed = result.Passed
	status.DiffURL = result.DiffURL
	if err != nil {
		status.Message = err.Error()
	} else {
		status.Message = verdict.Summary(result.Metric, result.Score)
	}
}

// applyError records a comparison that could not produce a verdict.
func applyError(status *vcV1.CheckStatus, err error, now time.Time) {
	checkTime := metaV1.NewTime(now)
	status.LastCheckTime = &checkTime
	status.Passed = false
	status.DiffURL = ""
	status.Message = err.Error()
}

// isPermanent reports whether retrying cannot fix err.
func isPermanent(err error) bool {
	var loadErr *imageload.LoadError
	return errors.As(err, &loadErr)
}

func recordOutcome(recorder record.EventRecorder, object runtime.Object, name string, status *vcV1.CheckStatus) {
	switch {
	case status.Metric == "":
		recorder.Eventf(object, coreV1.EventTypeNormal, "BaselineRecorded", "Recorded baseline for %q: %s", name, status.ActualURL)
	case status.Passed:
		recorder.Eventf(object, coreV1.EventTypeNormal, "CheckPassed", "Check passed: %q (%s)", name, verdict.Describe(verdict.Metric(status.Metric), status.Score))
	default:
		recorder.Eventf(object, coreV1.EventTypeWarning, "CheckFailed", "Check failed: %q (%s)", name, status.Message)
	}
}

func workerArgs(expected string, actual string, c *vcV1.CaptureSpec, o vcV1.CheckOptions, kind string, callbackURL string) []string {
	args := []string{
		"--kind", kind,
		"--callback-url", callbackURL,
	}
	if expected != "" {
		args = append(args, "--expected", expected)
	}
	if actual != "" {
		args = append(args, "--actual", actual)
	}

	if o.Metric != "" {
		args = append(args, "--metric", o.Metric)
	}
	if o.Tolerance > 0 {
		args = append(args, "--tolerance", strconv.FormatFloat(o.Tolerance, 'f', -1, 64))
	}
	if o.Resize {
		args = append(args, "--resize=true")
	}
	if o.ColorMode != "" {
		args = append(args, "--color-mode", o.ColorMode)
	}
	if o.ResampleFilter != "" {
		args = append(args, "--resample-filter", o.ResampleFilter)
	}

	if c != nil {
		args = append(args, "--capture-url", c.URL)
		if len(c.MaskSelectors) > 0 {
			args = append(args, "--mask-selectors", strings.Join(c.MaskSelectors, ","))
		}
		if c.ClipSelector != "" {
			args = append(args, "--clip-selector", c.ClipSelector)
		}
		if c.DeviceScaleFactor > 0 {
			args = append(args, "--device-scale-factor", strconv.FormatFloat(c.DeviceScaleFactor, 'f', -1, 64))
		}
		for key, value := range c.Headers {
			args = append(args, "-H", fmt.Sprintf("%s: %s", key, value))
		}
	}

	return args
}

func workerEnv() []coreV1.EnvVar {
	var envVars []coreV1.EnvVar
	for _, name := range []string{
		"S3_BUCKET",
		"S3_ENDPOINT_URL",
		"S3_REGION",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"CHROME_DEVTOOLS_PROTOCOL_URL",
	} {
		envVars = append(envVars, coreV1.EnvVar{
			Name:  name,
			Value: os.Getenv(name),
		})
	}

	return append([]coreV1.EnvVar{
		{
			Name:  "STORAGE_BACKEND",
			Value: "s3",
		},
	}, envVars...)
}

func callbackURL(host string, namespace string, kind string, name string) string {
	return fmt.Sprintf("http://%s/api/%s/%s/%s/%s/%s/artifacts", host, namespace, vcV1.GroupVersion.Group, vcV1.GroupVersion.Version, kind, name)
}
