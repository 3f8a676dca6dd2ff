package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/fetcher"
	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

// ErrBlocked is returned when a listing page looks like an anti-bot
// interstitial rather than real content. The crawl of that source stops
// for the cycle; its circuit breaker keeps later cycles polite.
var ErrBlocked = errors.New("listing page blocked by site")

// blockMarkers are substrings of known interstitial pages, checked against
// the lowercased body of suspiciously small responses.
var blockMarkers = []string{"access denied", "blocked", "captcha", "cloudflare"}

// blockCheckMaxLen bounds the block check to small bodies. Real listing
// pages are large; interstitials are not.
const blockCheckMaxLen = 20 * 1024

// ListingDiscoverer crawls ?page=N pagination of a source's front page and
// collects article links. Each source has its own circuit breaker so a
// hostile site trips only its own crawl.
type ListingDiscoverer struct {
	client      *fetcher.Client
	maxPages    int
	stagnation  int
	retryConfig retry.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewListing creates a ListingDiscoverer. maxPages bounds pagination depth;
// stagnation stops the crawl after that many consecutive pages yielding no
// new URLs.
func NewListing(client *fetcher.Client, maxPages, stagnation int) *ListingDiscoverer {
	return &ListingDiscoverer{
		client:      client,
		maxPages:    maxPages,
		stagnation:  stagnation,
		retryConfig: retry.ListingCrawlConfig(),
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// Discover walks listing pages 1..maxPages, extracting and filtering links
// until max candidates are collected, the pagination stagnates, or a page
// fails. Partial results are returned with a nil error; only a fully empty
// crawl reports the failure.
func (d *ListingDiscoverer) Discover(ctx context.Context, src entity.Source, max int) ([]string, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("source %s base URL: %w", src.Slug, err)
	}

	seen := make(map[string]struct{})
	var urls []string
	stagnant := 0

	for page := 1; page <= d.maxPages; page++ {
		pageURL := paginate(base, page)

		body, err := d.fetchPage(ctx, src.Slug, pageURL)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				slog.Warn("listing crawl blocked",
					slog.String("source", src.Slug),
					slog.Int("page", page))
				break
			}
			slog.Warn("listing page fetch failed",
				slog.String("source", src.Slug),
				slog.String("url", pageURL),
				slog.String("error", err.Error()))
			break
		}

		links, err := extractLinks(body, base, src)
		if err != nil {
			slog.Warn("listing page parse failed",
				slog.String("source", src.Slug),
				slog.String("url", pageURL),
				slog.String("error", err.Error()))
			break
		}

		added := 0
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			urls = append(urls, link)
			added++
			if len(urls) >= max {
				return urls, nil
			}
		}

		if added == 0 {
			stagnant++
			if stagnant >= d.stagnation {
				break
			}
		} else {
			stagnant = 0
		}
	}

	if len(urls) == 0 && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return urls, nil
}

// fetchPage retrieves one listing page through retry and the per-source
// circuit breaker, and runs the block heuristic on the body.
func (d *ListingDiscoverer) fetchPage(ctx context.Context, slug, pageURL string) ([]byte, error) {
	var body []byte

	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.breakerFor(slug).Execute(func() (interface{}, error) {
			b, err := d.client.Get(ctx, pageURL)
			if err != nil {
				return nil, err
			}
			if Blocked(b) {
				return nil, ErrBlocked
			}
			return b, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("listing crawl circuit breaker open, request rejected",
					slog.String("source", slug),
					slog.String("url", pageURL))
			}
			return err
		}

		body = cbResult.([]byte)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return body, nil
}

func (d *ListingDiscoverer) breakerFor(slug string) *circuitbreaker.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.breakers[slug]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.ListingCrawlConfig(slug))
		d.breakers[slug] = cb
	}
	return cb
}

// extractLinks parses anchors from a listing page and keeps the ones that
// pass the article URL filter, in document order.
func extractLinks(body []byte, base *url.URL, src entity.Source) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing HTML: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs, ok := NormalizeURL(base, href)
		if !ok {
			return
		}
		if IsArticleURL(abs, src) {
			links = append(links, abs)
		}
	})
	return links, nil
}

// paginate builds the URL of listing page n. Page 1 is the bare base URL.
func paginate(base *url.URL, page int) string {
	if page <= 1 {
		return base.String()
	}
	u := *base
	q := u.Query()
	q.Set("page", fmt.Sprint(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Blocked reports whether a fetched body looks like an anti-bot
// interstitial rather than real content. Large bodies are assumed real.
func Blocked(body []byte) bool {
	if len(body) > blockCheckMaxLen {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
