// Package objectify implements the delivery stage: every group the
// clustering pass created or grew is condensed into a single neutral
// article, written to the objectified folder tree and posted to the
// backend together with a cover image when one can be found.
package objectify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/store"
	"veritasnews/internal/infra/summarizer"
	"veritasnews/internal/observability/metrics"

	"github.com/google/uuid"
)

const (
	articleFileName = "article.json"
	imageFileName   = "image.jpg"
)

// Summarizer produces the neutral fields for a combined cluster text.
type Summarizer interface {
	Objectify(ctx context.Context, combined string) (summarizer.Fields, error)
}

// ImageFetcher locates and downloads a cover image for an article page.
type ImageFetcher interface {
	Download(ctx context.Context, imageURL, destPath string) error
	SaveArticleImage(ctx context.Context, pageURL, destPath string) bool
}

// Sender delivers an objectified article to the backend.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, article *entity.ObjectifiedArticle, imagePath string) error
}

// Service turns touched groups into objectified articles.
type Service struct {
	Groups     *store.GroupStore
	Summarizer Summarizer
	Images     ImageFetcher
	Backend    Sender
	OutDir     string
	Logger     *slog.Logger
}

// NewService creates an objectify Service writing under outDir.
func NewService(
	groups *store.GroupStore,
	sum Summarizer,
	images ImageFetcher,
	backend Sender,
	outDir string,
	logger *slog.Logger,
) *Service {
	return &Service{
		Groups:     groups,
		Summarizer: sum,
		Images:     images,
		Backend:    backend,
		OutDir:     outDir,
		Logger:     logger,
	}
}

// Stats summarizes one objectification pass.
type Stats struct {
	Groups   int
	Written  int
	Skipped  int
	Failed   int
	Uploaded int
	Duration time.Duration
}

// Run objectifies the given groups. Groups with fewer than two non-empty
// members are skipped; per-group failures are logged and counted but never
// abort the pass.
func (s *Service) Run(ctx context.Context, groupIDs []int) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Groups: len(groupIDs)}

	clusters, err := s.Groups.Groups()
	if err != nil {
		return nil, err
	}
	members := make(map[int][]string, len(clusters))
	for _, c := range clusters {
		members[c.ID] = c.Members
	}

	for _, gid := range groupIDs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		switch err := s.objectifyGroup(ctx, gid, members[gid]); {
		case err == nil:
			stats.Written++
		case errSkipped(err):
			stats.Skipped++
		default:
			stats.Failed++
			s.Logger.Error("group objectification failed",
				slog.Int("group", gid),
				slog.Any("error", err))
		}
	}

	stats.Duration = time.Since(start)
	s.Logger.Info("objectification pass completed",
		slog.Int("groups", stats.Groups),
		slog.Int("written", stats.Written),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// skipError marks a group that carries too little content to objectify.
type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

func errSkipped(err error) bool {
	_, ok := err.(*skipError)
	return ok
}

func (s *Service) objectifyGroup(ctx context.Context, gid int, memberIDs []string) error {
	storyStart := time.Now()

	articles, sourceURLs := s.loadMembers(gid, memberIDs)
	if len(articles) < 2 {
		return &skipError{reason: fmt.Sprintf("group %d has %d usable members", gid, len(articles))}
	}

	combined := combineContents(articles)
	fields, err := s.Summarizer.Objectify(ctx, combined)
	if err != nil {
		metrics.RecordObjectified(false, time.Since(storyStart))
		return fmt.Errorf("summarize group %d: %w", gid, err)
	}

	art := entity.NewObjectifiedArticle(sourceURLs, time.Now())
	art.Title = fields.Title
	art.Summary = fields.Summary
	art.LongerSummary = fields.LongerSummary
	art.Category = fields.Category
	art.Truncate()

	dir, err := s.makeArticleDir()
	if err != nil {
		metrics.RecordObjectified(false, time.Since(storyStart))
		return err
	}

	imagePath := filepath.Join(dir, imageFileName)
	if s.fetchImage(ctx, articles, imagePath) {
		img := imageFileName
		art.Image = &img
	} else {
		imagePath = ""
	}

	if err := writeArticleJSON(dir, &art); err != nil {
		metrics.RecordObjectified(false, time.Since(storyStart))
		return err
	}
	metrics.RecordObjectified(true, time.Since(storyStart))

	if s.Backend.Enabled() {
		if err := s.Backend.Send(ctx, &art, imagePath); err != nil {
			metrics.RecordBackendUpload("failure")
			// Delivery failures do not fail the group; the folder is the
			// durable output.
			s.Logger.Warn("backend delivery failed",
				slog.Int("group", gid),
				slog.Any("error", err))
		} else {
			metrics.RecordBackendUpload("success")
		}
	}
	return nil
}

// loadMembers reads a group's non-empty members, dropping records whose
// title repeats an earlier member: republished agency copy would otherwise
// double its weight in the combined text.
func (s *Service) loadMembers(gid int, memberIDs []string) ([]*entity.RawArticle, []string) {
	var articles []*entity.RawArticle
	var sourceURLs []string
	seenTitles := make(map[string]struct{})

	for _, id := range memberIDs {
		a, err := s.Groups.LoadMember(gid, id)
		if err != nil {
			s.Logger.Warn("group member unreadable",
				slog.Int("group", gid),
				slog.String("record_id", id),
				slog.Any("error", err))
			continue
		}
		if a.IsEmpty {
			continue
		}
		title := strings.TrimSpace(a.Title)
		if _, dup := seenTitles[title]; dup {
			continue
		}
		seenTitles[title] = struct{}{}
		articles = append(articles, a)
		sourceURLs = append(sourceURLs, a.URL)
	}
	return articles, sourceURLs
}

// combineContents joins member contents into the summarizer input.
func combineContents(articles []*entity.RawArticle) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		parts = append(parts, strings.TrimSpace(a.Content))
	}
	return strings.Join(parts, "\n\n")
}

// makeArticleDir creates the article folder. The name carries the creation
// timestamp plus a random suffix so two stories objectified in the same
// second never collide.
func (s *Service) makeArticleDir() (string, error) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	dir := filepath.Join(s.OutDir,
		fmt.Sprintf("article_%s_%s", time.Now().Format("20060102_150405"), suffix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create article folder: %w", err)
	}
	return dir, nil
}

func writeArticleJSON(dir string, art *entity.ObjectifiedArticle) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("encode article: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, articleFileName), data, 0o644); err != nil {
		return fmt.Errorf("write article: %w", err)
	}
	return nil
}

// fetchImage tries the members' own image URLs first, then scans their
// pages for an og:image. Image failures are soft: the article ships
// without a cover.
func (s *Service) fetchImage(ctx context.Context, articles []*entity.RawArticle, destPath string) bool {
	for _, a := range articles {
		if a.Image == "" {
			continue
		}
		if err := s.Images.Download(ctx, a.Image, destPath); err == nil {
			return true
		}
	}
	for _, a := range articles {
		if s.Images.SaveArticleImage(ctx, a.URL, destPath) {
			return true
		}
	}
	return false
}
