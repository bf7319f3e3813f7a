package verdict

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

type Metric string

const (
	// MetricPHash compares perceptual hashes by Hamming distance.
	MetricPHash Metric = "phash"
	// MetricRMS compares pixels by root-mean-square difference.
	MetricRMS Metric = "rms"
	// MetricRMSLoose is MetricRMS with the looser default tolerance used for
	// renders that went through a resize.
	MetricRMSLoose Metric = "rms-loose"
)

const (
	HammingTolerance  = 25.0
	RMSTolerance      = 10.0
	RMSLooseTolerance = 50.0
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricPHash, MetricRMS, MetricRMSLoose:
		return m, nil
	case "":
		return MetricPHash, nil
	default:
		return "", xerrors.Errorf("unknown metric: %s", s)
	}
}

// DefaultTolerance returns the tolerance used when none is configured.
func (m Metric) DefaultTolerance() float64 {
	switch m {
	case MetricRMS:
		return RMSTolerance
	case MetricRMSLoose:
		return RMSLooseTolerance
	default:
		return HammingTolerance
	}
}

// Passes reports whether score is within tolerance. Hamming distances must be
// strictly below the tolerance, RMS differences may equal it.
func (m Metric) Passes(score float64, tolerance float64) bool {
	if m == MetricPHash {
		return score < tolerance
	}
	return score <= tolerance
}

func (m Metric) scoreName() string {
	if m == MetricPHash {
		return "distance"
	}
	return "difference"
}

type ToleranceExceededError struct {
	Metric    Metric
	Score     float64
	Tolerance float64
}

func (e *ToleranceExceededError) Error() string {
	return fmt.Sprintf("image is too different from expected (%s %s, tolerance %s)", e.Metric.scoreName(), formatScore(e.Metric, e.Score), formatScore(e.Metric, e.Tolerance))
}

// Evaluate returns nil when score passes, otherwise a *ToleranceExceededError.
func Evaluate(metric Metric, score float64, tolerance float64) error {
	if metric.Passes(score, tolerance) {
		return nil
	}
	return &ToleranceExceededError{
		Metric:    metric,
		Score:     score,
		Tolerance: tolerance,
	}
}

// Describe formats score the way it is printed before the verdict.
func Describe(metric Metric, score float64) string {
	if metric == MetricPHash {
		return fmt.Sprintf("Hamming distance: %s", formatScore(metric, score))
	}
	return fmt.Sprintf("RMS difference: %s", formatScore(metric, score))
}

// Summary is the line printed after a passing comparison.
func Summary(metric Metric, score float64) string {
	return fmt.Sprintf("Images are nearly identical (%s %s)", metric.scoreName(), formatScore(metric, score))
}

func formatScore(metric Metric, v float64) string {
	if metric == MetricPHash {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.2f", v)
}
