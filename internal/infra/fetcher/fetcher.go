// Package fetcher provides the shared HTTP fetch layer for the pipeline.
// It owns the per-host throttling and the aggregate in-flight socket cap;
// retries are deliberately left to the callers, because a failed article URL
// is simply re-attempted on the next cycle.
package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"veritasnews/internal/resilience/retry"
)

// DesktopUserAgent is sent with every request. Several Turkish news sites
// return stripped-down or blocked pages to unknown agents.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	// maxBodySize caps response bodies to prevent memory exhaustion.
	maxBodySize = 10 * 1024 * 1024 // 10MB

	// perHostRate is the sustained request rate allowed against one host.
	perHostRate = rate.Limit(4)
	// perHostBurst allows short bursts when a listing page yields many links.
	perHostBurst = 8
)

// Client is a throttled HTTP fetcher.
// Concurrency is bounded two ways: a token-bucket limiter per host and a
// weighted semaphore over total in-flight requests.
type Client struct {
	httpClient *http.Client
	inflight   *semaphore.Weighted

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Client with the given per-request timeout and aggregate
// in-flight cap. TLS 1.2+ is enforced.
func New(timeout time.Duration, globalCap int64) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		inflight: semaphore.NewWeighted(globalCap),
		limiters: make(map[string]*rate.Limiter),
	}
}

// HTTPClient exposes the underlying http.Client for libraries that manage
// their own requests (the RSS parser).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Get fetches a URL and returns the body bytes.
// Non-2xx statuses are returned as *retry.HTTPError so callers can classify
// them; the body is still capped and drained to reuse the connection.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, err
	}

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer c.inflight.Release(1)

	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("host throttle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DesktopUserAgent)
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// limiterFor returns the rate limiter for a host, creating it on first use.
func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(perHostRate, perHostBurst)
		c.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	return u.Host, nil
}
