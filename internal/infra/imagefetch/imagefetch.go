// Package imagefetch locates and downloads a cover image for a story.
// The image is cosmetic: every failure is soft and the story ships
// without one.
package imagefetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"veritasnews/internal/infra/fetcher"
)

// Fetcher finds a representative image on an article page and downloads it.
type Fetcher struct {
	client *fetcher.Client
}

// New creates a Fetcher sharing the pipeline's throttled HTTP client.
func New(client *fetcher.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FindImageURL fetches the page and returns its cover image URL: the
// OpenGraph image if declared, otherwise the first absolute <img> on the
// page. An empty string means the page offers no usable image.
func (f *Fetcher) FindImageURL(ctx context.Context, pageURL string) (string, error) {
	body, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch page for image: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse page for image: %w", err)
	}

	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && strings.HasPrefix(img, "http") {
		return img, nil
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if strings.HasPrefix(src, "http") {
			found = src
			return false
		}
		return true
	})
	return found, nil
}

// Download writes the image bytes to destPath.
func (f *Fetcher) Download(ctx context.Context, imageURL, destPath string) error {
	data, err := f.client.Get(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// SaveArticleImage finds and downloads the cover image of an article page.
// Returns whether an image landed on disk; problems are logged, not
// returned, because a missing image never blocks delivery.
func (f *Fetcher) SaveArticleImage(ctx context.Context, pageURL, destPath string) bool {
	imageURL, err := f.FindImageURL(ctx, pageURL)
	if err != nil || imageURL == "" {
		if err != nil {
			slog.Debug("image lookup failed",
				slog.String("url", pageURL),
				slog.String("error", err.Error()))
		}
		return false
	}
	if err := f.Download(ctx, imageURL, destPath); err != nil {
		slog.Debug("image download failed",
			slog.String("url", imageURL),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
