package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articleLDTypes are the schema.org types we accept as article metadata.
var articleLDTypes = map[string]bool{
	"NewsArticle":          true,
	"Article":              true,
	"ReportageNewsArticle": true,
	"BlogPosting":          true,
}

// ldDocument is the loosely typed shape of a JSON-LD script block.
// Publishers vary wildly, so every field tolerates multiple encodings.
type ldDocument struct {
	Type          json.RawMessage `json:"@type"`
	Graph         []ldDocument    `json:"@graph"`
	Headline      string          `json:"headline"`
	ArticleBody   string          `json:"articleBody"`
	DatePublished string          `json:"datePublished"`
	Image         json.RawMessage `json:"image"`
}

// fromJSONLD scans the script[type="application/ld+json"] blocks of the
// page for an article object and maps its fields. Returns false when no
// block parses to an accepted type.
func fromJSONLD(doc *goquery.Document) (Result, bool) {
	var found Result
	var ok bool

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		for _, ld := range parseLD(raw) {
			if !isArticleLD(ld.Type) {
				continue
			}
			found = Result{
				Title:   strings.TrimSpace(ld.Headline),
				Content: strings.TrimSpace(ld.ArticleBody),
				Date:    strings.TrimSpace(ld.DatePublished),
				Image:   firstLDImage(ld.Image),
			}
			ok = true
			return false
		}
		return true
	})

	return found, ok
}

// parseLD decodes a JSON-LD block, flattening top-level arrays and @graph
// containers into a single list of candidate documents.
func parseLD(raw string) []ldDocument {
	var one ldDocument
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		if len(one.Graph) > 0 {
			return one.Graph
		}
		return []ldDocument{one}
	}

	var many []ldDocument
	if err := json.Unmarshal([]byte(raw), &many); err == nil {
		return many
	}
	return nil
}

// isArticleLD accepts @type encoded as a string or a list of strings.
func isArticleLD(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return articleLDTypes[single]
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, t := range list {
			if articleLDTypes[t] {
				return true
			}
		}
	}
	return false
}

// firstLDImage pulls a usable URL out of the image field, which may be a
// string, a list, or an ImageObject.
func firstLDImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return firstLDImage(list[0])
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}
