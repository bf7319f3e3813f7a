package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	vcV1 "visual-check/api/v1"
	"visual-check/internal/report"
	"visual-check/internal/storage"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

type ArtifactsResponse struct {
	Actual      string  `json:"actual,omitempty"`
	Expected    string  `json:"expected,omitempty"`
	Diff        string  `json:"diff,omitempty"`
	ActualURL   string  `json:"actualUrl,omitempty"`
	ExpectedURL string  `json:"expectedUrl,omitempty"`
	DiffURL     string  `json:"diffUrl,omitempty"`
	Metric      string  `json:"metric,omitempty"`
	Score       float64 `json:"score"`
	Tolerance   float64 `json:"tolerance,omitempty"`
	Passed      bool    `json:"passed"`
	Message     string  `json:"message,omitempty"`
}

func resourceFor(r *http.Request) schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    r.PathValue("group"),
		Version:  r.PathValue("version"),
		Resource: r.PathValue("kind") + "s",
	}
}

func ListArtifacts(dynamicClient dynamic.Interface, storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := r.PathValue("namespace")
		kind := r.PathValue("kind")
		name := r.PathValue("name")

		u, err := dynamicClient.Resource(resourceFor(r)).Namespace(namespace).Get(r.Context(), name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				http.NotFound(w, r)
				return
			}
			slog.Error(fmt.Sprintf("failed to get resource: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var (
			status      vcV1.CheckStatus
			expectedURL string
		)
		switch kind {
		case "imagecheck":
			var imageCheck vcV1.ImageCheck
			if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &imageCheck); err != nil {
				slog.Error(fmt.Sprintf("failed to convert image check: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			status = imageCheck.Status.CheckStatus
			expectedURL = imageCheck.Spec.Expected
		case "scheduledimagecheck":
			var scheduledImageCheck vcV1.ScheduledImageCheck
			if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &scheduledImageCheck); err != nil {
				slog.Error(fmt.Sprintf("failed to convert scheduled image check: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			status = scheduledImageCheck.Status.CheckStatus
			expectedURL = scheduledImageCheck.Status.BaselineURL
		default:
			http.Error(w, "Unsupported resource kind", http.StatusBadRequest)
			return
		}

		response := ArtifactsResponse{
			ActualURL:   status.ActualURL,
			ExpectedURL: expectedURL,
			DiffURL:     status.DiffURL,
			Metric:      status.Metric,
			Score:       status.Score,
			Tolerance:   status.Tolerance,
			Passed:      status.Passed,
			Message:     status.Message,
			Actual:      fetchBase64(r.Context(), storageClient, status.ActualURL),
			Expected:    fetchBase64(r.Context(), storageClient, expectedURL),
			Diff:        fetchBase64(r.Context(), storageClient, status.DiffURL),
		}

		b, err := json.Marshal(response)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// fetchBase64 returns an empty string for artifacts that are missing or
// cannot be read.
func fetchBase64(ctx context.Context, storageClient storage.Storage, url string) string {
	if url == "" || storageClient == nil {
		return ""
	}
	data, err := storageClient.Get(ctx, url)
	if err != nil {
		slog.Warn(fmt.Sprintf("failed to get artifact %s: %s", url, err))
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

func UpdateArtifacts(dynamicClient dynamic.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := r.PathValue("namespace")
		kind := r.PathValue("kind")
		name := r.PathValue("name")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to read request body: %s", err))
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		var payload report.Payload
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.Error(fmt.Sprintf("failed to unmarshal request: %s", err))
			http.Error(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}

		status := statusPatch(&payload)
		switch kind {
		case "imagecheck":
		case "scheduledimagecheck":
			status["baselineUrl"] = nullIfEmpty(payload.BaselineURL)
		default:
			http.Error(w, "Unsupported resource kind", http.StatusBadRequest)
			return
		}

		patchData, err := json.Marshal(map[string]interface{}{
			"status": status,
		})
		if err != nil {
			slog.Error(fmt.Sprintf("failed to marshal patch data: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		u, err := dynamicClient.Resource(resourceFor(r)).Namespace(namespace).Patch(
			r.Context(),
			name,
			types.MergePatchType,
			patchData,
			metav1.PatchOptions{},
			"status",
		)
		if err != nil {
			if apierrors.IsNotFound(err) {
				http.NotFound(w, r)
				return
			}
			slog.Error(fmt.Sprintf("failed to patch status: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		b, err := u.MarshalJSON()
		if err != nil {
			slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// statusPatch sets every field of the check status so that a merge patch
// leaves nothing behind from the previous run.
func statusPatch(payload *report.Payload) map[string]interface{} {
	message := payload.Message
	if message == "" && payload.Metric == "" {
		message = "Baseline recorded"
	}

	return map[string]interface{}{
		"actualUrl":     nullIfEmpty(payload.ActualURL),
		"diffUrl":       nullIfEmpty(payload.DiffURL),
		"metric":        nullIfEmpty(payload.Metric),
		"score":         payload.Score,
		"tolerance":     payload.Tolerance,
		"passed":        payload.Passed,
		"message":       nullIfEmpty(message),
		"lastCheckTime": metav1.Now(),
	}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
