package entity

import (
	"time"

	"github.com/google/uuid"
)

// maxBackendFieldLen is the backend's column limit for short text fields.
const maxBackendFieldLen = 100

// ObjectifiedArticle is the single neutral record derived from a cluster.
// Its JSON layout is the wire format expected by the backend insert endpoint.
type ObjectifiedArticle struct {
	ArticleID       string   `json:"articleId"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	LongerSummary   string   `json:"longerSummary"`
	Category        string   `json:"category"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	Source          []string `json:"source"`
	Location        *string  `json:"location"`
	PopularityScore int      `json:"popularityScore"`
	CreatedAt       string   `json:"createdAt"`
	Image           *string  `json:"image"`
	Priority        *int     `json:"priority"`
}

// NewObjectifiedArticle builds an ObjectifiedArticle shell with a fresh id and
// the fixed defaults the backend expects. Summaries and category are filled
// in by the summarizer adapter.
func NewObjectifiedArticle(sourceURLs []string, now time.Time) ObjectifiedArticle {
	return ObjectifiedArticle{
		ArticleID: uuid.NewString(),
		Content:   "",
		Tags:      []string{},
		Source:    sourceURLs,
		CreatedAt: now.Format(time.RFC3339),
	}
}

// Truncate enforces the backend's 100-character limits on the short fields.
func (o *ObjectifiedArticle) Truncate() {
	o.ArticleID = truncateField(o.ArticleID)
	o.Category = truncateField(o.Category)
	if o.Location != nil {
		loc := truncateField(*o.Location)
		o.Location = &loc
	}
}

func truncateField(v string) string {
	if len(v) > maxBackendFieldLen {
		return v[:maxBackendFieldLen]
	}
	return v
}
