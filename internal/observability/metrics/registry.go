// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape metrics track discovery and article fetching per source.
var (
	// ArticlesFetchedTotal counts fetched-and-stored articles by source.
	ArticlesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_articles_fetched_total",
			Help: "Total number of new articles fetched and stored",
		},
		[]string{"source"},
	)

	// ArticlesEmptyTotal counts articles whose extraction produced no content.
	ArticlesEmptyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_articles_empty_total",
			Help: "Total number of fetched articles with empty extracted content",
		},
		[]string{"source"},
	)

	// FetchErrorsTotal counts article fetch failures by source.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_fetch_errors_total",
			Help: "Total number of article fetch failures",
		},
		[]string{"source"},
	)

	// CandidatesDiscoveredTotal counts candidate URLs found by discovery.
	CandidatesDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_candidates_discovered_total",
			Help: "Total number of candidate article URLs discovered",
		},
		[]string{"source", "mode"},
	)

	// SourceScrapeDuration measures the duration of one source's scrape pass.
	SourceScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_source_duration_seconds",
			Help:    "Duration of one source scrape pass in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"source"},
	)
)

// Clustering metrics track the grouping stage.
var (
	// EmbeddingsComputedTotal counts encoder round trips by cache outcome.
	EmbeddingsComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluster_embeddings_total",
			Help: "Total number of embeddings resolved, by cache outcome",
		},
		[]string{"outcome"}, // hit, computed
	)

	// GroupsCreatedTotal counts newly formed groups.
	GroupsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_groups_created_total",
			Help: "Total number of new article groups created",
		},
	)

	// ArticlesAttachedTotal counts articles attached to existing groups.
	ArticlesAttachedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_articles_attached_total",
			Help: "Total number of articles attached to existing groups",
		},
	)

	// ClusterPassDuration measures the duration of a clustering pass.
	ClusterPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluster_pass_duration_seconds",
			Help:    "Duration of one clustering pass in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"mode"}, // initial, incremental
	)
)

// Objectification metrics track LLM generation and backend delivery.
var (
	// StoriesObjectifiedTotal counts objectification attempts by status.
	StoriesObjectifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectify_stories_total",
			Help: "Total number of story objectification attempts",
		},
		[]string{"status"}, // success, failure
	)

	// ObjectifyDuration measures the duration of objectifying one story.
	ObjectifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "objectify_story_duration_seconds",
			Help:    "Duration of objectifying one story in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
	)

	// BackendUploadsTotal counts delivery attempts by status.
	BackendUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectify_backend_uploads_total",
			Help: "Total number of backend upload attempts",
		},
		[]string{"status"}, // success, failure, disabled
	)
)
