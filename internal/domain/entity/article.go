// Package entity defines the core domain entities and validation logic for the pipeline.
// It contains the fundamental business objects such as RawArticle, Source and Cluster,
// along with their validation rules and domain-specific errors.
package entity

import (
	"strings"
	"time"
	"unicode"

	"veritasnews/internal/utils/text"
)

// MinClusterWords is the minimum content word count for an article to be
// eligible for clustering. Shorter records stay in the unmatched pool.
const MinClusterWords = 50

// maxTitleSlugLen caps the slugified title portion of a record id.
const maxTitleSlugLen = 50

// RawArticle represents a single fetched-and-parsed news page.
// It is immutable after creation; every downstream stage refers to it by
// its record id, which is also its filename in the article store.
type RawArticle struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Genre       string `json:"genre"`
	ArticleDate string `json:"article_date"`
	RequestDate string `json:"request_date"`
	IsEmpty     bool   `json:"is_empty"`
	Image       string `json:"image,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewRawArticle builds a RawArticle, filling in the request date and the
// empty-content flag. The article date falls back to the fetch time when the
// page did not expose one.
func NewRawArticle(source, url, title, content, genre, articleDate, image string, now time.Time) RawArticle {
	if articleDate == "" {
		articleDate = now.Format(time.RFC3339)
	}
	return RawArticle{
		Title:       title,
		Content:     content,
		URL:         url,
		Source:      source,
		Genre:       genre,
		ArticleDate: articleDate,
		RequestDate: now.Format(time.RFC3339),
		IsEmpty:     strings.TrimSpace(content) == "",
		Image:       image,
	}
}

// NewErrorArticle builds an empty RawArticle recording a fetch or parse failure.
// Failed pages are persisted too, so a cycle summary can count them.
func NewErrorArticle(source, url, genre string, fetchErr string, now time.Time) RawArticle {
	a := NewRawArticle(source, url, "", "", genre, "", "", now)
	a.Error = fetchErr
	return a
}

// RecordID returns the stable identifier of the article, which doubles as its
// filename: {source}_{YYYY-MM-DD}_{slugified-title}.json.
// The date portion is the first ten characters of the article date.
func (a *RawArticle) RecordID() string {
	date := a.ArticleDate
	if len(date) > 10 {
		date = date[:10]
	}
	return a.Source + "_" + date + "_" + SlugifyTitle(a.Title) + ".json"
}

// EncodingText returns the text fed to the sentence encoder.
// The title is doubled to up-weight the headline relative to the body.
func (a *RawArticle) EncodingText() string {
	title := strings.TrimSpace(a.Title)
	content := strings.TrimSpace(a.Content)
	return title + ". " + title + ". " + content
}

// ClusterEligible reports whether the article carries enough content to be
// clustered. Empty and near-empty records never leave the unmatched pool.
func (a *RawArticle) ClusterEligible() bool {
	return !a.IsEmpty && text.CountWords(a.Content) >= MinClusterWords
}

// SlugifyTitle converts a title into a filename-safe slug: alphanumeric runes
// are kept, everything else becomes an underscore, capped at 50 runes.
func SlugifyTitle(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(title) {
		if n >= maxTitleSlugLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
		n++
	}
	return b.String()
}
