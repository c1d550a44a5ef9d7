package scraper

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"hunter-backend/utils"
)

// RenderFetcher fetches pages through a headless browser for sources that
// assemble their markup client-side. It satisfies Fetcher, so crawlers do
// not care whether a page came over plain HTTP or through Chrome.
type RenderFetcher struct {
	limiter *utils.RateLimiter
	retry   *utils.RetryConfig
	logger  *utils.Logger

	chromeBin string
	timeout   time.Duration
	settle    time.Duration
}

// NewRenderFetcher creates a browser-backed fetcher. chromeBin may be empty,
// in which case the binary is discovered from CHROME_BIN and common install
// paths.
func NewRenderFetcher(chromeBin string, rateLimitMs, maxRetries int, logger *utils.Logger) *RenderFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &RenderFetcher{
		limiter: utils.NewRateLimiter(time.Duration(rateLimitMs) * time.Millisecond),
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger:    logger,
		chromeBin: chromeBin,
		timeout:   60 * time.Second,
		settle:    3 * time.Second,
	}
}

// Fetch renders the page and returns the full post-JavaScript HTML.
func (r *RenderFetcher) Fetch(url string) (string, error) {
	var html string

	err := r.retry.Do("render "+url, func() error {
		r.limiter.Wait()

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent(defaultUserAgent),
		)
		if r.chromeBin != "" {
			opts = append(opts, chromedp.ExecPath(r.chromeBin))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		defer cancelAlloc()

		// Suppress chromedp log noise
		ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancelCtx()

		ctx, cancelTimeout := context.WithTimeout(ctx, r.timeout)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.Sleep(r.settle),
			chromedp.OuterHTML("html", &html),
		)
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
