package routes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"visual-check/internal/checker"
	"visual-check/internal/imageload"
	"visual-check/internal/verdict"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type CheckResponse struct {
	Metric    string  `json:"metric"`
	Score     float64 `json:"score"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
	Message   string  `json:"message"`
	DiffData  string  `json:"diffData,omitempty"`
}

// CheckMetrics are recorded for every completed comparison. Nil instruments
// are skipped.
type CheckMetrics struct {
	Total metric.Int64Counter
	Score metric.Float64Histogram
}

func (m *CheckMetrics) record(ctx context.Context, result *checker.Result) {
	if m == nil {
		return
	}
	attributes := metric.WithAttributes(
		attribute.Key("metric").String(string(result.Metric)),
		attribute.Key("passed").Bool(result.Passed),
	)
	if m.Total != nil {
		m.Total.Add(ctx, 1, attributes)
	}
	if m.Score != nil {
		m.Score.Record(ctx, result.Score, attributes)
	}
}

// Check compares the "actual" and "expected" images of a multipart form.
// A failed comparison is still a 200 response with passed set to false.
func Check(metrics *CheckMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		options, err := checkOptionsFromForm(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, err := checker.New(nil, options)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		actualData, err := formFileData(r, "actual")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		expectedData, err := formFileData(r, "expected")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		actual, err := imageload.DecodeNamed("actual", actualData)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		expected, err := imageload.DecodeNamed("expected", expectedData)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := c.CheckImages(actual, expected)
		if err != nil && !checker.IsToleranceExceeded(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		metrics.record(r.Context(), result)

		response := CheckResponse{
			Metric:    string(result.Metric),
			Score:     result.Score,
			Tolerance: result.Tolerance,
			Passed:    result.Passed,
			Message:   verdict.Summary(result.Metric, result.Score),
		}
		if err != nil {
			response.Message = err.Error()
		}

		if result.DiffImage != nil {
			var buffer bytes.Buffer
			if err := png.Encode(&buffer, result.DiffImage); err != nil {
				slog.Error(fmt.Sprintf("failed to encode diff image: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffData = base64.StdEncoding.EncodeToString(buffer.Bytes())
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func checkOptionsFromForm(r *http.Request) (checker.Options, error) {
	metric, err := verdict.ParseMetric(r.FormValue("metric"))
	if err != nil {
		return checker.Options{}, err
	}
	colorMode, err := imageload.ParseColorMode(r.FormValue("colorMode"))
	if err != nil {
		return checker.Options{}, err
	}
	filter, err := imageload.ParseFilter(r.FormValue("resampleFilter"))
	if err != nil {
		return checker.Options{}, err
	}

	options := checker.Options{
		Metric:    metric,
		ColorMode: colorMode,
		Filter:    filter,
	}
	if v := r.FormValue("tolerance"); v != "" {
		if options.Tolerance, err = strconv.ParseFloat(v, 64); err != nil {
			return checker.Options{}, fmt.Errorf("invalid tolerance: %s", v)
		}
	}
	if v := r.FormValue("resize"); v != "" {
		if options.Resize, err = strconv.ParseBool(v); err != nil {
			return checker.Options{}, fmt.Errorf("invalid resize: %s", v)
		}
	}

	return options, nil
}

func formFileData(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("missing %s image", name)
		}
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}
