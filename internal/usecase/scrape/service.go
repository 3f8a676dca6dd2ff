// Package scrape implements the incremental collection stage: discover
// candidate article URLs per source, diff them against the per-source URL
// ledger, fetch and extract the fresh ones, and persist the resulting
// records.
package scrape

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"veritasnews/internal/config"
	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/discover"
	"veritasnews/internal/infra/extractor"
	"veritasnews/internal/infra/fetcher"
	"veritasnews/internal/observability/logging"
	"veritasnews/internal/observability/metrics"

	"golang.org/x/sync/errgroup"
)

// Discoverer yields candidate article URLs for a source, newest first,
// capped at max.
type Discoverer interface {
	Discover(ctx context.Context, src entity.Source, max int) ([]string, error)
}

// ArticleStore persists raw article records keyed by record id.
type ArticleStore interface {
	Save(a *entity.RawArticle) (string, error)
	Exists(recordID string) bool
}

// Ledger tracks which URLs have already been processed per source.
type Ledger interface {
	Diff(slug string, candidates []string) ([]string, error)
	Append(slug string, urls []string) error
}

// CycleLog records the per-cycle outputs operators and downstream stages
// read. Record ids stay listed until a clustering pass consumes them.
type CycleLog interface {
	WriteNewArticles(recordIDs []string) error
	ReadNewArticles() ([]string, error)
	AppendSummary(now time.Time, newArticles int) error
}

// Service orchestrates one scrape pass over all configured sources.
type Service struct {
	RSS      Discoverer
	Listing  Discoverer
	Fetcher  *fetcher.Client
	Articles ArticleStore
	Ledger   Ledger
	Cycle    CycleLog
	Config   *config.Config
	Logger   *slog.Logger
}

// NewService creates a scrape Service with the provided dependencies.
func NewService(
	rss, listing Discoverer,
	fc *fetcher.Client,
	articles ArticleStore,
	ledger Ledger,
	cycle CycleLog,
	cfg *config.Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		RSS:      rss,
		Listing:  listing,
		Fetcher:  fc,
		Articles: articles,
		Ledger:   ledger,
		Cycle:    cycle,
		Config:   cfg,
		Logger:   logger,
	}
}

// Stats summarizes one scrape pass.
type Stats struct {
	Sources     int
	Candidates  int64
	Fresh       int64
	Stored      int64
	Empty       int64
	FetchErrors int64
	Duration    time.Duration

	// NewRecordIDs lists the records stored this pass, sorted.
	NewRecordIDs []string
}

// ScrapeAll runs one scrape pass over the given sources. Per-source
// failures are logged and skipped; the pass errors only when the context
// is cancelled.
func (s *Service) ScrapeAll(ctx context.Context, sources []entity.Source) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Sources: len(sources)}

	var mu sync.Mutex
	var newIDs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Config.ListingPoolSize)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			ids, err := s.scrapeSource(gctx, src, stats)
			if err != nil {
				// Source-level failures never abort the pass.
				s.Logger.Warn("source scrape failed",
					slog.String("source", src.Slug),
					slog.Any("error", err))
				return nil
			}
			mu.Lock()
			newIDs = append(newIDs, ids...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	sort.Strings(newIDs)
	stats.NewRecordIDs = newIDs
	stats.Duration = time.Since(start)

	// Ids still listed from an earlier cycle were never consumed by a
	// clustering pass; keep them so the next pass picks them up.
	pending := newIDs
	if leftover, err := s.Cycle.ReadNewArticles(); err != nil {
		s.Logger.Warn("failed to read new articles log", slog.Any("error", err))
	} else if len(leftover) > 0 {
		pending = mergeIDs(newIDs, leftover)
	}
	if err := s.Cycle.WriteNewArticles(pending); err != nil {
		s.Logger.Error("failed to write new articles log", slog.Any("error", err))
	}
	if err := s.Cycle.AppendSummary(time.Now(), len(newIDs)); err != nil {
		s.Logger.Error("failed to append scrape summary", slog.Any("error", err))
	}

	s.Logger.Info("scrape pass completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("candidates", stats.Candidates),
		slog.Int64("fresh", stats.Fresh),
		slog.Int64("stored", stats.Stored),
		slog.Int64("empty", stats.Empty),
		slog.Int64("fetch_errors", stats.FetchErrors),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// scrapeSource discovers, diffs, fetches and stores one source. It returns
// the record ids stored for the source.
func (s *Service) scrapeSource(ctx context.Context, src entity.Source, stats *Stats) ([]string, error) {
	srcStart := time.Now()
	log := logging.WithSource(s.Logger, src.Slug)

	d := s.selectDiscoverer(src)
	candidates, err := d.Discover(ctx, src, s.Config.MaxCandidates)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&stats.Candidates, int64(len(candidates)))
	metrics.RecordCandidates(src.Slug, string(src.Mode()), len(candidates))

	fresh, err := s.Ledger.Diff(src.Slug, candidates)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&stats.Fresh, int64(len(fresh)))
	if len(fresh) == 0 {
		metrics.RecordSourceScrape(src.Slug, time.Since(srcStart))
		return nil, nil
	}

	log.Info("fetching fresh articles",
		slog.Int("candidates", len(candidates)),
		slog.Int("fresh", len(fresh)))

	var mu sync.Mutex
	var stored []string
	var processed []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Config.SavePoolSize)

	for _, pageURL := range fresh {
		pageURL := pageURL
		g.Go(func() error {
			recordID, ok := s.fetchOne(gctx, src, pageURL, stats)
			if !ok {
				return nil
			}
			mu.Lock()
			processed = append(processed, pageURL)
			if recordID != "" {
				stored = append(stored, recordID)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stored, err
	}

	// Only successfully processed URLs enter the ledger. Failed fetches are
	// retried on the next cycle.
	if err := s.Ledger.Append(src.Slug, processed); err != nil {
		return stored, err
	}

	metrics.RecordSourceScrape(src.Slug, time.Since(srcStart))
	return stored, nil
}

// fetchOne fetches and stores a single article page. The second return
// value reports whether the URL was fully processed and may be added to
// the ledger. The record id is empty when a record with the same id
// already exists.
func (s *Service) fetchOne(ctx context.Context, src entity.Source, pageURL string, stats *Stats) (string, bool) {
	now := time.Now()

	body, err := s.Fetcher.Get(ctx, pageURL)
	if err != nil {
		atomic.AddInt64(&stats.FetchErrors, 1)
		metrics.RecordFetchError(src.Slug)
		s.Logger.Warn("article fetch failed",
			slog.String("source", src.Slug),
			slog.String("url", pageURL),
			slog.Any("error", err))
		return "", false
	}

	var article entity.RawArticle
	if discover.Blocked(body) {
		article = entity.NewErrorArticle(src.Slug, pageURL, src.GenreFromURL(pageURL), "Blocked by site", now)
	} else if res, err := extractor.Extract(body, pageURL, src); err != nil {
		// The page was fetched but is not parseable HTML. Persist the
		// failure so it is not retried forever.
		article = entity.NewErrorArticle(src.Slug, pageURL, src.GenreFromURL(pageURL), err.Error(), now)
	} else {
		article = entity.NewRawArticle(src.Slug, pageURL, res.Title, res.Content,
			src.GenreFromURL(pageURL), res.Date, res.Image, now)
	}

	if article.IsEmpty {
		atomic.AddInt64(&stats.Empty, 1)
	}
	metrics.RecordArticleFetched(src.Slug, article.IsEmpty)

	recordID := article.RecordID()
	if s.Articles.Exists(recordID) {
		// Same story already stored under another URL. Mark the URL
		// processed without rewriting the record.
		return "", true
	}

	if _, err := s.Articles.Save(&article); err != nil {
		s.Logger.Error("article save failed",
			slog.String("record_id", recordID),
			slog.Any("error", err))
		return "", false
	}
	atomic.AddInt64(&stats.Stored, 1)
	return recordID, true
}

// mergeIDs unions two record id lists, deduplicated and sorted.
func mergeIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, ids := range [][]string{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// selectDiscoverer picks the discovery strategy implied by the source
// configuration.
func (s *Service) selectDiscoverer(src entity.Source) Discoverer {
	if src.Mode() == entity.DiscoveryRSS {
		return s.RSS
	}
	return s.Listing
}
