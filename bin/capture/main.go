package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"
	"visual-check/internal/capture"
	"visual-check/internal/env"
	"visual-check/internal/pipeline"
	"visual-check/internal/storage"
)

type CaptureResult struct {
	ScreenshotPath string `json:"screenshotPath"`
}

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
}

// captureOptions turns the raw flag values into capture options. Headers
// without a colon are ignored.
func captureOptions(maskSelectors string, clipSelector string, deviceScaleFactor float64, hs headers) capture.CaptureOptions {
	options := capture.CaptureOptions{
		ClipSelector:      clipSelector,
		DeviceScaleFactor: deviceScaleFactor,
	}
	if maskSelectors != "" {
		for _, selector := range strings.Split(maskSelectors, ",") {
			if selector = strings.TrimSpace(selector); selector != "" {
				options.MaskSelectors = append(options.MaskSelectors, selector)
			}
		}
	}
	for _, header := range hs {
		key, value, ok := strings.Cut(header, ":")
		if !ok {
			continue
		}
		if options.Headers == nil {
			options.Headers = make(map[string]string)
		}
		options.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return options
}

func main() {
	var directory string
	var format string
	var maskSelectors string
	var clipSelector string
	var deviceScaleFactor float64
	var delay time.Duration
	var viewportWidth int
	var viewportHeight int
	var userAgent string
	var chromeDevtoolsProtocolURL string
	var hs headers
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", "png"), "Output format (png or jpeg)")
	flag.StringVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.StringVar(&clipSelector, "clip-selector", env.OrDefault("CLIP_SELECTOR", ""), "Capture only the first element matching this CSS selector")
	flag.Float64Var(&deviceScaleFactor, "device-scale-factor", env.OrDefault("DEVICE_SCALE_FACTOR", 0.0), "Device scale factor, e.g. 2.5")
	flag.DurationVar(&delay, "delay", env.OrDefault("DELAY", 3*time.Second), "Delay before capturing")
	flag.IntVar(&viewportWidth, "viewport-width", env.OrDefault("VIEWPORT_WIDTH", 1920), "Viewport width in pixels")
	flag.IntVar(&viewportHeight, "viewport-height", env.OrDefault("VIEWPORT_HEIGHT", 1080), "Viewport height in pixels")
	flag.StringVar(&userAgent, "user-agent", env.OrDefault("USER_AGENT", ""), "User-Agent string to use for requests")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&hs, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	url := args[0]

	ctx := context.Background()

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	config := capture.DefaultPlaywrightConfig()
	if format != "" {
		config.Format = format
	}
	if delay > 0 {
		config.Delay = delay
	}
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}
	if display := os.Getenv("DISPLAY"); display != "" {
		config.Headless = false
	}
	if viewportWidth > 0 {
		config.ViewportWidth = viewportWidth
	}
	if viewportHeight > 0 {
		config.ViewportHeight = viewportHeight
	}
	if userAgent != "" {
		config.UserAgent = userAgent
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	runner := &pipeline.Runner{
		Capturer: capturer,
		Storage:  s,
	}
	outcome, err := runner.Run(ctx, pipeline.Request{
		Kind:           "ImageCheck",
		CaptureURL:     url,
		CaptureOptions: captureOptions(maskSelectors, clipSelector, deviceScaleFactor, hs),
	})
	if err != nil {
		log.Fatalf("Failed to capture screenshot: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(CaptureResult{
		ScreenshotPath: outcome.ActualURL,
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
