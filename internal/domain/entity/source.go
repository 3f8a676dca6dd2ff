package entity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DiscoveryMode selects how candidate article URLs are discovered for a source.
type DiscoveryMode string

const (
	// DiscoveryRSS iterates the configured feed URLs and collects entry links.
	DiscoveryRSS DiscoveryMode = "rss"
	// DiscoveryListing walks paginated HTML listing pages and harvests anchors.
	DiscoveryListing DiscoveryMode = "listing"
)

// SelectorSet is one extraction attempt: CSS selectors for the parts of an
// article page. Selectors may be empty, in which case the generic fallbacks
// apply for that part.
type SelectorSet struct {
	Title      string
	Paragraphs string
	Date       string
	Image      string
}

// Source describes one news site: where to discover article URLs and how to
// extract article fields from its pages.
type Source struct {
	// Slug is the stable identifier used in record ids and ledger filenames.
	Slug string
	// Name is the human-readable display name.
	Name string
	// BaseURL is the site root; listing pages are derived from it.
	BaseURL string
	// RSSURLs, when non-empty, switches discovery to RSS mode.
	RSSURLs []string
	// Profile is the ordered list of selector sets to try; the first set
	// yielding a non-empty paragraph list wins.
	Profile []SelectorSet
	// GenreOverride, when set, replaces the genre derived from the URL path.
	GenreOverride string
	// ExtraAcceptPatterns extends the global URL accept substrings.
	ExtraAcceptPatterns []string
}

// Mode returns the discovery mode implied by the source configuration.
func (s *Source) Mode() DiscoveryMode {
	if len(s.RSSURLs) > 0 {
		return DiscoveryRSS
	}
	return DiscoveryListing
}

// Validate validates the Source fields.
func (s *Source) Validate() error {
	if s.Slug == "" {
		return errors.New("source slug cannot be empty")
	}
	if s.Slug != SafeSlug(s.Slug) {
		return fmt.Errorf("source slug %q contains unsafe characters", s.Slug)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %s: invalid base URL %q", s.Slug, s.BaseURL)
	}
	for _, feed := range s.RSSURLs {
		if _, err := url.Parse(feed); err != nil {
			return fmt.Errorf("source %s: invalid RSS URL %q: %w", s.Slug, feed, err)
		}
	}
	return nil
}

// GenreFromURL derives the genre of an article URL: the first non-empty path
// segment, lowercased. The per-source override wins when configured.
func (s *Source) GenreFromURL(rawURL string) string {
	if s.GenreOverride != "" {
		return s.GenreOverride
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return strings.ToLower(seg)
		}
	}
	return "unknown"
}

// SafeSlug sanitizes a source slug for use in ledger filenames: alphanumerics,
// underscore and hyphen are kept, everything else becomes an underscore.
func SafeSlug(slug string) string {
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
