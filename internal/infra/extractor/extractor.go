// Package extractor turns fetched article HTML into structured fields.
// Extraction is layered: the source's hand-tuned selector profile first,
// then JSON-LD metadata, then generic selector heuristics, and finally the
// Readability algorithm as a last resort for the body text.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"veritasnews/internal/domain/entity"
)

// Result holds the raw fields pulled out of one article page. Date and
// Image may be empty; Title and Content empty means extraction failed.
type Result struct {
	Title   string
	Content string
	Date    string
	Image   string
}

// Extract parses the HTML and runs the extraction layers in order. The
// first layer producing non-empty content wins for the body; title, date
// and image are filled from whichever layer knows them first.
func Extract(body []byte, pageURL string, src entity.Source) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse article HTML: %w", err)
	}

	var res Result

	for _, set := range src.Profile {
		if r, ok := fromProfile(doc, set); ok {
			res = r
			break
		}
	}

	if ld, ok := fromJSONLD(doc); ok {
		merge(&res, ld)
	}
	if res.Content == "" || res.Title == "" {
		merge(&res, fromGeneric(doc))
	}
	if res.Content == "" {
		if text, ok := fromReadability(body, pageURL, res.Title); ok {
			res.Content = text
		}
	}

	res.Title = cleanText(res.Title)
	res.Content = cleanText(res.Content)
	res.Date = normalizeDate(res.Date)
	res.Image = absoluteURL(pageURL, res.Image)

	return res, nil
}

// fromProfile applies one hand-tuned selector set. It succeeds only when
// the paragraph selector yields text; a matching title alone is not enough
// to trust the set.
func fromProfile(doc *goquery.Document, set entity.SelectorSet) (Result, bool) {
	content := joinParagraphs(doc, set.Paragraphs)
	if content == "" {
		return Result{}, false
	}

	r := Result{Content: content}
	if set.Title != "" {
		r.Title = strings.TrimSpace(doc.Find(set.Title).First().Text())
	}
	if set.Date != "" {
		sel := doc.Find(set.Date).First()
		if dt, ok := sel.Attr("datetime"); ok {
			r.Date = dt
		} else {
			r.Date = strings.TrimSpace(sel.Text())
		}
	}
	if set.Image != "" {
		if img, ok := doc.Find(set.Image).First().Attr("src"); ok {
			r.Image = img
		}
	}
	return r, true
}

// readabilityMinGain is the rune count a Readability extraction must add
// over the page title before it is trusted as body text.
const readabilityMinGain = 10

// fromReadability extracts body text with the Readability algorithm. On a
// page with no real body Readability echoes the heading back, so output
// that is not meaningfully longer than the already-extracted title is
// rejected and the record stays empty.
func fromReadability(body []byte, pageURL, title string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", false
	}
	if title = strings.TrimSpace(title); title != "" &&
		utf8.RuneCountInString(text) <= utf8.RuneCountInString(title)+readabilityMinGain {
		return "", false
	}
	return text, true
}

// merge fills empty fields of dst from src without overwriting.
func merge(dst *Result, src Result) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Content == "" {
		dst.Content = src.Content
	}
	if dst.Date == "" {
		dst.Date = src.Date
	}
	if dst.Image == "" {
		dst.Image = src.Image
	}
}

// joinParagraphs collects the text of every element matching the selector
// and joins the non-empty ones with blank lines.
func joinParagraphs(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// cleanText collapses runs of whitespace inside lines while keeping
// paragraph breaks.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

// absoluteURL resolves an image reference against the article page URL.
func absoluteURL(pageURL, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
