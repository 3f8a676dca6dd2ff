package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/fetcher"
	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

// RSSDiscoverer reads a source's RSS/Atom feeds with gofeed.
// It includes circuit breaker and retry logic for improved reliability.
type RSSDiscoverer struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSS creates an RSSDiscoverer with the given HTTP client.
func NewRSS(client *http.Client) *RSSDiscoverer {
	return &RSSDiscoverer{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Discover parses each configured feed in order and returns the item links,
// deduplicated in first-seen order and capped at max. A feed that fails
// after retries is skipped so one dead feed does not blank the source.
func (d *RSSDiscoverer) Discover(ctx context.Context, src entity.Source, max int) ([]string, error) {
	if len(src.RSSURLs) == 0 {
		return nil, fmt.Errorf("source %s has no RSS feeds", src.Slug)
	}

	seen := make(map[string]struct{})
	var urls []string
	var failed int

	for _, feedURL := range src.RSSURLs {
		links, err := d.fetchFeed(ctx, feedURL)
		if err != nil {
			failed++
			slog.Warn("feed fetch failed",
				slog.String("source", src.Slug),
				slog.String("url", feedURL),
				slog.String("error", err.Error()))
			continue
		}
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			urls = append(urls, link)
			if len(urls) >= max {
				return urls, nil
			}
		}
	}

	if failed == len(src.RSSURLs) {
		return nil, fmt.Errorf("all %d feeds of source %s failed", failed, src.Slug)
	}
	return urls, nil
}

// fetchFeed retrieves one feed through retry and circuit breaker.
func (d *RSSDiscoverer) fetchFeed(ctx context.Context, feedURL string) ([]string, error) {
	var links []string

	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doFetch(ctx, feedURL)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
					slog.String("state", d.circuitBreaker.State().String()))
				return err
			}
			return err
		}

		links = cbResult.([]string)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return links, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (d *RSSDiscoverer) doFetch(ctx context.Context, feedURL string) ([]string, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = fetcher.DesktopUserAgent
	fp.Client = d.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Link == "" {
			continue
		}
		links = append(links, it.Link)
	}
	return links, nil
}
