package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// genericParagraphSelectors are tried in order for sources without a
// working profile. Class-substring matching covers the common CMS layouts
// of Turkish news sites.
var genericParagraphSelectors = []string{
	"article p",
	`div[class*="content"] p`,
	`div[class*="article-body"] p`,
	`div[class*="detail"] p`,
}

// dateFormats are the timestamp layouts publishers actually emit, tried
// in order after RFC3339.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// fromGeneric applies the selector heuristics that work across most sites:
// heading tags and OpenGraph for the title, common body containers for the
// paragraphs, and the standard meta tags for date and image.
func fromGeneric(doc *goquery.Document) Result {
	return Result{
		Title:   genericTitle(doc),
		Content: genericContent(doc),
		Date:    genericDate(doc),
		Image:   genericImage(doc),
	}
}

func genericTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h2").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	if t, ok := doc.Find(`meta[name="title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func genericContent(doc *goquery.Document) string {
	for _, sel := range genericParagraphSelectors {
		if text := joinParagraphs(doc, sel); text != "" {
			return text
		}
	}
	return ""
}

// genericDateSelectors are the meta tags publishers stamp the article
// timestamp on, most reliable first. The modified time ranks last among
// the meta tags; it drifts on every CMS edit.
var genericDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="date"]`,
	`meta[name="publish_date"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="article:modified_time"]`,
	`meta[property="article:modified_time"]`,
}

func genericDate(doc *goquery.Document) string {
	for _, sel := range genericDateSelectors {
		if d, ok := doc.Find(sel).Attr("content"); ok && d != "" {
			return d
		}
	}
	if d, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && d != "" {
		return d
	}
	return ""
}

func genericImage(doc *goquery.Document) string {
	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && img != "" {
		return img
	}
	if img, ok := doc.Find(`meta[name="twitter:image"]`).Attr("content"); ok && img != "" {
		return img
	}
	return ""
}

// normalizeDate parses a publisher timestamp into RFC3339. Unparseable
// values are returned unchanged so the record still carries a hint; empty
// input stays empty and the record falls back to the fetch time.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return raw
}
