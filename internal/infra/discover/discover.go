// Package discover finds candidate article URLs for a source, either from
// its RSS feeds or by crawling paginated listing pages. Discovery returns
// URLs only; fetching and extraction happen downstream.
package discover

import (
	"context"
	"net/url"
	"strings"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/registry"
)

// Discoverer yields candidate article URLs for a source, newest first,
// capped at max.
type Discoverer interface {
	Discover(ctx context.Context, src entity.Source, max int) ([]string, error)
}

// NormalizeURL resolves a possibly relative href against a page URL and
// strips the fragment. Returns false for unparseable or non-HTTP links.
func NormalizeURL(pageURL *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := pageURL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// IsArticleURL applies the accept/reject pattern filter and the same-host
// rule. Extra accept patterns of the source are honored alongside the
// shared list.
func IsArticleURL(candidate string, src entity.Source) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return false
	}
	if !sameHost(u.Host, base.Host) {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, r := range registry.RejectPatterns {
		if strings.Contains(path, r) {
			return false
		}
	}
	for _, a := range registry.AcceptPatterns {
		if strings.Contains(path, a) {
			return true
		}
	}
	for _, a := range src.ExtraAcceptPatterns {
		if strings.Contains(path, a) {
			return true
		}
	}
	return false
}

// sameHost treats "www.example.com" and "example.com" as one host.
func sameHost(a, b string) bool {
	return strings.TrimPrefix(a, "www.") == strings.TrimPrefix(b, "www.")
}
