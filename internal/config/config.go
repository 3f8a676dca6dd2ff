// Package config exposes the pipeline-wide configuration: the on-disk layout
// rooted at BASE_DIR, similarity thresholds, crawl limits and API keys.
// Values are loaded from environment variables with validated defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	pkgconfig "veritasnews/internal/pkg/config"
)

// Default similarity thresholds. The attachment threshold gates joining a
// group; the internal threshold is the post-condition among group members.
const (
	DefaultMatchThreshold    = 0.75
	DefaultInternalThreshold = 0.70
)

// EncoderModel is the sentence encoder the embedding sidecar must serve.
// Embedding dimensionality is fixed by the model.
const (
	EncoderModel     = "paraphrase-multilingual-MiniLM-L12-v2"
	EmbeddingDim     = 384
	EncoderBatchSize = 32
)

// Discovery limits.
const (
	DefaultMaxCandidates   = 300
	DefaultMaxListingPages = 10
	DefaultStagnationLimit = 6
)

// Fetch limits.
const (
	DefaultFetchTimeout   = 10 * time.Second
	DefaultSavePoolSize   = 5
	DefaultListingPool    = 8
	DefaultGlobalFetchCap = 64
)

// Paths is the filesystem layout of the pipeline state, all relative to the
// configured base directory.
type Paths struct {
	BaseDir        string
	PulledDir      string // RawArticle JSON records and per-source URL ledgers
	GroupedDir     string // group_{N}/ directories and still_unmatched/
	ObjectifiedDir string // article_{ts}_{rand}/ folders with article.json
	CacheFile      string // embedding_cache.json
	ScraperLog     string // append-only cycle summary
	NewArticlesLog string // per-cycle list of new record paths
}

// NewPaths derives the standard layout from a base directory.
func NewPaths(baseDir string) Paths {
	return Paths{
		BaseDir:        baseDir,
		PulledDir:      filepath.Join(baseDir, "pulled_articles"),
		GroupedDir:     filepath.Join(baseDir, "grouped_articles_updated"),
		ObjectifiedDir: filepath.Join(baseDir, "objectified_jsons"),
		CacheFile:      filepath.Join(baseDir, "embedding_cache.json"),
		ScraperLog:     filepath.Join(baseDir, "scraper_log.txt"),
		NewArticlesLog: filepath.Join(baseDir, "new_articles_log.txt"),
	}
}

// Config is the full pipeline configuration.
type Config struct {
	Paths Paths

	// MatchThreshold is the attachment similarity threshold.
	MatchThreshold float64
	// InternalThreshold is the pairwise post-condition among cluster members.
	InternalThreshold float64

	// MaxCandidates bounds the candidate URL set per source per cycle.
	MaxCandidates int
	// MaxListingPages bounds pagination depth in listing discovery.
	MaxListingPages int
	// StagnationLimit stops pagination after this many pages without new URLs.
	StagnationLimit int

	// FetchTimeout is the per-request timeout of the HTTP fetcher.
	FetchTimeout time.Duration
	// SavePoolSize is the per-source concurrency for article fetches.
	SavePoolSize int
	// ListingPoolSize is the per-source concurrency for listing-page fetches.
	ListingPoolSize int
	// GlobalFetchCap bounds total in-flight sockets across all sources.
	GlobalFetchCap int

	// InsertURL is the backend endpoint receiving objectified articles.
	InsertURL string
	// EncoderURL is the sentence encoder sidecar endpoint.
	EncoderURL string
	// GeminiAPIKeys is the rotation pool for the Gemini summarizer.
	GeminiAPIKeys []string
}

// Load reads the configuration from environment variables.
//
// Environment variables:
//   - BASE_DIR: pipeline state root (default: ./data)
//   - MATCH_THRESHOLD, INTERNAL_THRESHOLD: similarity thresholds
//   - INSERT_URL: backend insert endpoint (empty disables delivery)
//   - ENCODER_URL: encoder sidecar endpoint (default: http://localhost:8090/encode)
//   - GEMINI_API_KEYS: comma-separated key rotation pool
func Load() (*Config, error) {
	cfg := &Config{
		Paths:             NewPaths(pkgconfig.GetEnvString("BASE_DIR", "data")),
		MatchThreshold:    pkgconfig.GetEnvFloat("MATCH_THRESHOLD", DefaultMatchThreshold),
		InternalThreshold: pkgconfig.GetEnvFloat("INTERNAL_THRESHOLD", DefaultInternalThreshold),
		MaxCandidates:     pkgconfig.GetEnvInt("MAX_CANDIDATES", DefaultMaxCandidates),
		MaxListingPages:   pkgconfig.GetEnvInt("MAX_LISTING_PAGES", DefaultMaxListingPages),
		StagnationLimit:   pkgconfig.GetEnvInt("STAGNATION_LIMIT", DefaultStagnationLimit),
		FetchTimeout:      pkgconfig.GetEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		SavePoolSize:      pkgconfig.GetEnvInt("SAVE_POOL_SIZE", DefaultSavePoolSize),
		ListingPoolSize:   pkgconfig.GetEnvInt("LISTING_POOL_SIZE", DefaultListingPool),
		GlobalFetchCap:    pkgconfig.GetEnvInt("GLOBAL_FETCH_CAP", DefaultGlobalFetchCap),
		InsertURL:         pkgconfig.GetEnvString("INSERT_URL", ""),
		EncoderURL:        pkgconfig.GetEnvString("ENCODER_URL", "http://localhost:8090/encode"),
		GeminiAPIKeys:     pkgconfig.GetEnvStringList("GEMINI_API_KEYS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks threshold and limit sanity.
func (c *Config) Validate() error {
	if err := pkgconfig.ValidateRatio(c.MatchThreshold); err != nil {
		return fmt.Errorf("match threshold: %w", err)
	}
	if err := pkgconfig.ValidateRatio(c.InternalThreshold); err != nil {
		return fmt.Errorf("internal threshold: %w", err)
	}
	if c.InternalThreshold > c.MatchThreshold {
		return fmt.Errorf("internal threshold %g exceeds match threshold %g",
			c.InternalThreshold, c.MatchThreshold)
	}
	if err := pkgconfig.ValidateIntRange(c.MaxCandidates, 1, 10000); err != nil {
		return fmt.Errorf("max candidates: %w", err)
	}
	if err := pkgconfig.ValidateIntRange(c.MaxListingPages, 1, 100); err != nil {
		return fmt.Errorf("max listing pages: %w", err)
	}
	if err := pkgconfig.ValidateIntRange(c.StagnationLimit, 1, c.MaxListingPages); err != nil {
		return fmt.Errorf("stagnation limit: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("fetch timeout: %w", err)
	}
	if err := pkgconfig.ValidateIntRange(c.GlobalFetchCap, 1, 1024); err != nil {
		return fmt.Errorf("global fetch cap: %w", err)
	}
	return nil
}
