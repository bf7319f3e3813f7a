package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"visual-check/internal/capture"
	"visual-check/internal/checker"
	"visual-check/internal/env"
	"visual-check/internal/imageload"
	"visual-check/internal/pipeline"
	"visual-check/internal/report"
	"visual-check/internal/storage"
	"visual-check/internal/verdict"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/xerrors"
)

type Worker struct {
	Runner   *pipeline.Runner
	Reporter *report.Client
}

// headerFlags collects repeated -H "Key: Value" flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+": "+h[key])
	}
	return strings.Join(pairs, ", ")
}

func (h headerFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(key) == "" {
		return xerrors.Errorf("invalid header %q, expected \"Key: Value\"", v)
	}
	h[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

func splitSelectors(s string) []string {
	var selectors []string
	for _, selector := range strings.Split(s, ",") {
		if selector = strings.TrimSpace(selector); selector != "" {
			selectors = append(selectors, selector)
		}
	}
	return selectors
}

func main() {
	var kind string
	var callbackURL string
	var expected string
	var actual string
	var metric string
	var tolerance float64
	var resize bool
	var colorMode string
	var resampleFilter string
	var captureURL string
	var maskSelectors string
	var clipSelector string
	var deviceScaleFactor float64
	var screenshotFormat string
	var chromeDevtoolsProtocolURL string
	var storageBackend string
	headers := headerFlags{}

	flag.StringVar(&kind, "kind", env.OrDefault("KIND", "ImageCheck"), "Kind of the resource the check belongs to, prefixes stored keys")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.StringVar(&expected, "expected", env.OrDefault("EXPECTED", ""), "URL of the expected image; the previous capture when empty")
	flag.StringVar(&actual, "actual", env.OrDefault("ACTUAL", ""), "URL of the actual image when nothing is captured")
	flag.StringVar(&metric, "metric", env.OrDefault("METRIC", "phash"), "Similarity metric (phash, rms or rms-loose)")
	flag.Float64Var(&tolerance, "tolerance", env.OrDefault("TOLERANCE", 0.0), "Override the metric's default tolerance")
	flag.BoolVar(&resize, "resize", env.OrDefault("RESIZE", false), "Resample the actual image to the expected image's size")
	flag.StringVar(&colorMode, "color-mode", env.OrDefault("COLOR_MODE", ""), "Convert both images before comparing (rgb, rgba or gray)")
	flag.StringVar(&resampleFilter, "resample-filter", env.OrDefault("RESAMPLE_FILTER", ""), "Filter used with -resize")
	flag.StringVar(&captureURL, "capture-url", env.OrDefault("CAPTURE_URL", ""), "Page to capture as the actual image")
	flag.StringVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", ""), "Comma separated CSS selectors to mask before capture")
	flag.StringVar(&clipSelector, "clip-selector", env.OrDefault("CLIP_SELECTOR", ""), "Capture only the first element matching this CSS selector")
	flag.Float64Var(&deviceScaleFactor, "device-scale-factor", env.OrDefault("DEVICE_SCALE_FACTOR", 0.0), "Device scale factor of the page")
	flag.Var(headers, "H", "Header sent with every request of the page, e.g. -H \"Authorization: Bearer token\"")
	flag.StringVar(&screenshotFormat, "screenshot-format", env.OrDefault("SCREENSHOT_FORMAT", "png"), "Screenshot format (png or jpeg)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")

	flag.Parse()

	ctx := context.Background()

	parsedMetric, err := verdict.ParseMetric(metric)
	if err != nil {
		log.Fatalf("invalid metric: %v", err)
	}
	parsedColorMode, err := imageload.ParseColorMode(colorMode)
	if err != nil {
		log.Fatalf("invalid color mode: %v", err)
	}
	parsedFilter, err := imageload.ParseFilter(resampleFilter)
	if err != nil {
		log.Fatalf("invalid resample filter: %v", err)
	}

	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: env.OrDefault("DIRECTORY", "/tmp"),
		S3: storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		},
	})
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	var capturer capture.Capturer
	if captureURL != "" {
		config := capture.DefaultPlaywrightConfig()
		config.Format = screenshotFormat
		if chromeDevtoolsProtocolURL != "" {
			config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
		} else if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			log.Fatalf("failed to install playwright browsers: %v", err)
		}

		capturer, err = capture.NewPlaywrightCapturer(ctx, config)
		if err != nil {
			log.Fatalf("failed to initialize capturer: %v", err)
		}
	}

	worker := &Worker{
		Runner: &pipeline.Runner{
			Capturer: capturer,
			Storage:  s,
		},
		Reporter: &report.Client{},
	}

	payload, err := worker.process(ctx, pipeline.Request{
		Kind:       kind,
		ActualURL:  actual,
		CaptureURL: captureURL,
		CaptureOptions: capture.CaptureOptions{
			Headers:           headers,
			MaskSelectors:     splitSelectors(maskSelectors),
			ClipSelector:      clipSelector,
			DeviceScaleFactor: deviceScaleFactor,
		},
		ExpectedURL: expected,
		Options: checker.Options{
			Metric:    parsedMetric,
			Tolerance: tolerance,
			ColorMode: parsedColorMode,
			Resize:    resize,
			Filter:    parsedFilter,
		},
	}, callbackURL)
	if err != nil {
		log.Fatalf("failed to process image check: %v", err)
	}

	if callbackURL == "" {
		j, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal result: %v", err)
		}
		fmt.Println(string(j))
	}
}

// process runs one check and reports it to callbackURL when set. Without an
// expected image the previous capture known to callbackURL is the baseline.
func (w *Worker) process(ctx context.Context, request pipeline.Request, callbackURL string) (*report.Payload, error) {
	if request.ExpectedURL == "" && callbackURL != "" {
		artifacts, err := w.Reporter.Latest(ctx, callbackURL)
		if err != nil {
			return nil, xerrors.Errorf("failed to get previous artifacts: %w", err)
		}
		request.ExpectedURL = artifacts.ActualURL
	}

	outcome, err := w.Runner.Run(ctx, request)
	if err != nil && !checker.IsToleranceExceeded(err) {
		return nil, err
	}

	payload := &report.Payload{
		ActualURL:   outcome.ActualURL,
		BaselineURL: request.ExpectedURL,
		Message:     "Baseline recorded",
	}
	if result := outcome.Result; result != nil {
		payload.Metric = string(result.Metric)
		payload.Score = result.Score
		payload.Tolerance = result.Tolerance
		payload.Passed = result.Passed
		payload.DiffURL = result.DiffURL
		payload.Message = verdict.Summary(result.Metric, result.Score)
		if err != nil {
			payload.Message = err.Error()
		}
	}

	if callbackURL != "" {
		if err := w.Reporter.Callback(ctx, callbackURL, payload); err != nil {
			return nil, xerrors.Errorf("failed to send callback: %w", err)
		}
	}

	return payload, nil
}
