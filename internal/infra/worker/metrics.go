package worker

import (
	"veritasnews/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics tracks cron cycle execution on top of the standard
// configuration metrics.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronCycleRunsTotal counts pipeline cycles by status (success/failure).
	CronCycleRunsTotal *prometheus.CounterVec

	// CronCycleDurationSeconds measures full cycle duration.
	CronCycleDurationSeconds prometheus.Histogram

	// CronCycleArticlesTotal counts new articles stored across all cycles.
	CronCycleArticlesTotal prometheus.Counter

	// CronCycleLastSuccessTimestamp records when a cycle last succeeded.
	CronCycleLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronCycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_cycle_runs_total",
			Help: "Total number of pipeline cycles by status (success/failure)",
		}, []string{"status"}),

		CronCycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_cycle_duration_seconds",
			Help:    "Duration of one full pipeline cycle in seconds",
			Buckets: []float64{5, 30, 60, 120, 300, 600, 900},
		}),

		CronCycleArticlesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_cycle_articles_total",
			Help: "Total number of new articles stored across all cycles",
		}),

		CronCycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful pipeline cycle",
		}),
	}
}

// RecordCycleRun counts one cycle with the given status.
func (m *WorkerMetrics) RecordCycleRun(status string) {
	m.CronCycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordCycleDuration records a cycle duration in seconds.
func (m *WorkerMetrics) RecordCycleDuration(seconds float64) {
	m.CronCycleDurationSeconds.Observe(seconds)
}

// RecordArticles adds the number of new articles a cycle produced.
func (m *WorkerMetrics) RecordArticles(count int) {
	m.CronCycleArticlesTotal.Add(float64(count))
}

// RecordLastSuccess marks now as the last successful cycle.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronCycleLastSuccessTimestamp.SetToCurrentTime()
}
