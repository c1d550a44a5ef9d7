package scraper

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"hunter-backend/utils"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves one document by URL. The default implementation is
// Client; the Otodom scraper substitutes a browser-rendering fetcher.
type Fetcher interface {
	Fetch(url string) (string, error)
}

// Client fetches pages over plain HTTP with browser-like headers, a
// mandatory inter-request delay, and exponential back-off retries on
// transient failures (timeouts, 5xx, 429). Non-retryable HTTP statuses
// surface as utils.ErrPermanent.
type Client struct {
	http    *http.Client
	limiter *utils.RateLimiter
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

// NewClient creates a rate-limited HTTP client.
func NewClient(rateLimitMs, maxRetries int, logger *utils.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: utils.NewRateLimiter(time.Duration(rateLimitMs) * time.Millisecond),
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Fetch GETs the URL and returns the response body. The rate-limit delay is
// applied before every attempt, including retries.
func (c *Client) Fetch(url string) (string, error) {
	var body string

	err := c.retry.Do("GET "+url, func() error {
		c.limiter.Wait()

		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", utils.ErrPermanent)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %d: %w", resp.StatusCode, utils.ErrPermanent)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = string(data)
		return nil
	})

	return body, err
}

// NewDocument parses an HTML string into a goquery document.
func NewDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
