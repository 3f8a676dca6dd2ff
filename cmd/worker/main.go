package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"veritasnews/internal/cluster"
	"veritasnews/internal/config"
	"veritasnews/internal/infra/backend"
	"veritasnews/internal/infra/discover"
	"veritasnews/internal/infra/encoder"
	"veritasnews/internal/infra/fetcher"
	"veritasnews/internal/infra/imagefetch"
	"veritasnews/internal/infra/store"
	"veritasnews/internal/infra/summarizer"
	workerPkg "veritasnews/internal/infra/worker"
	"veritasnews/internal/observability/logging"
	"veritasnews/internal/registry"
	clusterUC "veritasnews/internal/usecase/clustergroup"
	objectifyUC "veritasnews/internal/usecase/objectify"
	scrapeUC "veritasnews/internal/usecase/scrape"
)

// pipeline bundles the three stages of one cycle.
type pipeline struct {
	scrape    *scrapeUC.Service
	cluster   *clusterUC.Service
	objectify *objectifyUC.Service
}

func main() {
	if err := godotenv.Load(); err != nil {
		// Not an error: production deployments set real environment variables.
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load pipeline configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("pipeline configuration loaded",
		slog.String("base_dir", cfg.Paths.BaseDir),
		slog.Float64("match_threshold", cfg.MatchThreshold),
		slog.Float64("internal_threshold", cfg.InternalThreshold),
		slog.Int("sources", len(registry.All())))

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	p, cleanup, err := setupPipeline(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to set up pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	runCronWorker(ctx, logger, p, workerConfig, workerMetrics, healthServer)
}

// setupPipeline wires the stores, adapters and stage services. The returned
// cleanup closes the summarizer clients.
func setupPipeline(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*pipeline, func(), error) {
	fetchClient := fetcher.New(cfg.FetchTimeout, int64(cfg.GlobalFetchCap))

	articles, err := store.NewArticleStore(cfg.Paths.PulledDir)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := store.NewLedger(cfg.Paths.PulledDir)
	if err != nil {
		return nil, nil, err
	}
	groups, err := store.NewGroupStore(cfg.Paths.GroupedDir)
	if err != nil {
		return nil, nil, err
	}
	cache, err := store.OpenEmbeddingCache(cfg.Paths.CacheFile)
	if err != nil {
		return nil, nil, err
	}
	cycleLog := store.NewCycleLog(cfg.Paths.ScraperLog, cfg.Paths.NewArticlesLog)

	rssDiscoverer := discover.NewRSS(fetchClient.HTTPClient())
	listingDiscoverer := discover.NewListing(fetchClient, cfg.MaxListingPages, cfg.StagnationLimit)

	// The encoder sidecar holds the connection open while a batch runs, so
	// its client gets a generous timeout of its own.
	enc := encoder.New(cfg.EncoderURL, config.EncoderModel,
		config.EncoderBatchSize, config.EmbeddingDim,
		&http.Client{Timeout: 2 * time.Minute})

	sum, sumCleanup, err := createSummarizer(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	sender := backend.NewSender(cfg.InsertURL, createBackendHTTPClient())
	if sender.Enabled() {
		logger.Info("backend delivery enabled", slog.String("insert_url", cfg.InsertURL))
	} else {
		logger.Info("backend delivery disabled")
	}

	p := &pipeline{
		scrape: scrapeUC.NewService(rssDiscoverer, listingDiscoverer, fetchClient,
			articles, ledger, cycleLog, cfg, logger),
		cluster: clusterUC.NewService(articles, groups, cache, enc,
			cluster.New(cfg.MatchThreshold, cfg.InternalThreshold), cycleLog, logger),
		objectify: objectifyUC.NewService(groups, sum, imagefetch.New(fetchClient),
			sender, cfg.Paths.ObjectifiedDir, logger),
	}
	return p, sumCleanup, nil
}

// createSummarizer selects the LLM backend via SUMMARIZER_TYPE: gemini
// (default, key rotation pool), openai or claude.
func createSummarizer(ctx context.Context, logger *slog.Logger, cfg *config.Config) (objectifyUC.Summarizer, func(), error) {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "gemini"
	}

	noop := func() {}
	switch summarizerType {
	case "gemini":
		g, err := summarizer.NewGemini(ctx, cfg.GeminiAPIKeys)
		if err != nil {
			return nil, nil, fmt.Errorf("GEMINI_API_KEYS is required when SUMMARIZER_TYPE=gemini: %w", err)
		}
		logger.Info("using Gemini for objectification",
			slog.Int("api_keys", len(cfg.GeminiAPIKeys)))
		return g, func() {
			if err := g.Close(); err != nil {
				logger.Error("failed to close Gemini clients", slog.Any("error", err))
			}
		}, nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
		}
		logger.Info("using OpenAI for objectification")
		return summarizer.NewOpenAI(apiKey), noop, nil
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, nil, fmt.Errorf("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
		}
		logger.Info("using Claude for objectification")
		return summarizer.NewClaude(apiKey), noop, nil
	default:
		return nil, nil, fmt.Errorf("invalid SUMMARIZER_TYPE %q, expected gemini, openai or claude", summarizerType)
	}
}

// createBackendHTTPClient builds the client for backend uploads. TLS 1.2+
// is enforced.
func createBackendHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// runCronWorker runs one cycle immediately, then on the configured cron
// schedule, until the context is cancelled.
func runCronWorker(ctx context.Context, logger *slog.Logger, p *pipeline, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runCycle(ctx, logger, p, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	// The first cycle runs right away so a fresh deployment produces
	// output before the first cron tick.
	runCycle(ctx, logger, p, cfg, metrics)

	<-ctx.Done()
	logger.Info("worker shutting down")
	cronCtx := c.Stop()
	<-cronCtx.Done()
}

// runCycle executes one scrape-cluster-objectify cycle with a timeout.
func runCycle(ctx context.Context, logger *slog.Logger, p *pipeline, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordCycleRun("started")
	logger.Info("pipeline cycle started")

	ctx, cancel := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancel()

	scrapeStats, err := p.scrape.ScrapeAll(ctx, registry.All())
	if err != nil {
		failCycle(logger, metrics, startTime, "scrape", err)
		return
	}

	clusterStats, err := p.cluster.Run(ctx, scrapeStats.NewRecordIDs)
	if err != nil {
		failCycle(logger, metrics, startTime, "cluster", err)
		return
	}

	objectifyStats, err := p.objectify.Run(ctx, clusterStats.TouchedGroups)
	if err != nil {
		failCycle(logger, metrics, startTime, "objectify", err)
		return
	}

	metrics.RecordCycleRun("success")
	metrics.RecordCycleDuration(time.Since(startTime).Seconds())
	metrics.RecordArticles(len(scrapeStats.NewRecordIDs))
	metrics.RecordLastSuccess()

	logger.Info("pipeline cycle completed",
		slog.Int("new_articles", len(scrapeStats.NewRecordIDs)),
		slog.String("cluster_mode", clusterStats.Mode),
		slog.Int("groups_created", clusterStats.GroupsCreated),
		slog.Int("attached", clusterStats.Attached),
		slog.Int("objectified", objectifyStats.Written),
		slog.Duration("duration", time.Since(startTime)))
}

func failCycle(logger *slog.Logger, metrics *workerPkg.WorkerMetrics, startTime time.Time, stage string, err error) {
	logger.Error("pipeline cycle failed",
		slog.String("stage", stage),
		slog.Any("error", err))
	metrics.RecordCycleRun("failure")
	metrics.RecordCycleDuration(time.Since(startTime).Seconds())
}
