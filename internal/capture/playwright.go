package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	FullPage bool
	Format   string
	Quality  int

	Timeout time.Duration
	Delay   time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string

	UserAgent string
	// DeviceScaleFactor zooms the page; 2.5 renders at two and a half times
	// the CSS pixel size.
	DeviceScaleFactor float64
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		FullPage:          true,
		Format:            "png",
		Quality:           85,
		Timeout:           30 * time.Second,
		Delay:             500 * time.Millisecond,
		Headless:          true,
		DeviceScaleFactor: 1,
	}
}

type playwrightCapturer struct {
	config PlaywrightConfig
}

func NewPlaywrightCapturer(ctx context.Context, p PlaywrightConfig) (Capturer, error) {
	return &playwrightCapturer{
		config: p,
	}, nil
}

func (c *playwrightCapturer) Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error) {
	p, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	defer p.Stop()

	var browser playwright.Browser

	if c.config.ChromeDevtoolsProtocolURL == "" {
		browser, err = p.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.config.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		defer browser.Close()
	} else {
		browser, err = p.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to browser via CDP at %s: %w", c.config.ChromeDevtoolsProtocolURL, err)
		}
	}

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  c.config.ViewportWidth,
			Height: c.config.ViewportHeight,
		},
	}
	if scale := c.deviceScaleFactor(captureOptions); scale > 0 {
		contextOptions.DeviceScaleFactor = playwright.Float(scale)
	}
	if c.config.UserAgent != "" {
		contextOptions.UserAgent = playwright.String(c.config.UserAgent)
	}

	browserContext, err := browser.NewContext(contextOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer browserContext.Close()

	page, err := browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if len(captureOptions.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(captureOptions.Headers); err != nil {
			return nil, fmt.Errorf("failed to set HTTP headers: %w", err)
		}
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(c.config.Timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if c.config.Delay > 0 {
		select {
		case <-time.After(c.config.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(captureOptions.MaskSelectors) > 0 {
		unique := make([]byte, 8)
		if _, err := rand.Read(unique); err != nil {
			return nil, fmt.Errorf("failed to generate unique identifier: %w", err)
		}
		maskClassName := fmt.Sprintf("mask-%s", hex.EncodeToString(unique))

		maskCSS := fmt.Sprintf(`
.%s {
  position: relative !important;
}
.%s::after {
  content: "" !important;
  position: absolute !important;
  top: 0 !important;
  left: 0 !important;
  right: 0 !important;
  bottom: 0 !important;
  background-color: black !important;
  z-index: 2147483646 !important;
  pointer-events: none !important;
}
`, maskClassName, maskClassName)

		script := fmt.Sprintf(`(selectors) => {
			const style = document.createElement('style');
			style.textContent = %q;
			document.head.appendChild(style);

			selectors.forEach(selector => {
				const elements = document.querySelectorAll(selector);
				elements.forEach(element => {
					const computedStyle = window.getComputedStyle(element);
					if (computedStyle.position === 'static') {
						element.style.position = 'relative';
					}
					element.classList.add(%q);
				});
			});
		}`, maskCSS, maskClassName)

		if _, err := page.Evaluate(script, captureOptions.MaskSelectors); err != nil {
			return nil, fmt.Errorf("failed to mask selectors: %w", err)
		}
	}

	screenshotType, quality := c.screenshotType()

	var screenshotBytes []byte
	if captureOptions.ClipSelector != "" {
		locator := page.Locator(captureOptions.ClipSelector).First()
		screenshotBytes, err = locator.Screenshot(playwright.LocatorScreenshotOptions{
			Type:    screenshotType,
			Quality: quality,
			Timeout: playwright.Float(float64(c.config.Timeout.Milliseconds())),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to take screenshot of %s: %w", captureOptions.ClipSelector, err)
		}
	} else {
		screenshotBytes, err = page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(c.config.FullPage),
			Type:     screenshotType,
			Quality:  quality,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to take screenshot: %w", err)
		}
	}

	return &CaptureResult{
		Screenshot: screenshotBytes,
		Format:     c.format(),
	}, nil
}

// format is the file extension of the screenshots this capturer takes.
func (c *playwrightCapturer) format() string {
	if c.config.Format == "png" {
		return "png"
	}
	return "jpeg"
}

func (c *playwrightCapturer) deviceScaleFactor(captureOptions CaptureOptions) float64 {
	if captureOptions.DeviceScaleFactor > 0 {
		return captureOptions.DeviceScaleFactor
	}
	return c.config.DeviceScaleFactor
}

func (c *playwrightCapturer) screenshotType() (*playwright.ScreenshotType, *int) {
	if c.format() == "png" {
		return playwright.ScreenshotTypePng, nil
	}
	if c.config.Quality > 0 {
		return playwright.ScreenshotTypeJpeg, playwright.Int(c.config.Quality)
	}
	return playwright.ScreenshotTypeJpeg, nil
}
