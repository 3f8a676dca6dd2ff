package worker

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prometheus collectors register globally, so the metrics instance is
// shared across tests.
var (
	testMetrics     *WorkerMetrics
	testMetricsOnce sync.Once
)

func metricsForTest() *WorkerMetrics {
	testMetricsOnce.Do(func() {
		testMetrics = NewWorkerMetrics()
	})
	return testMetrics
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "@every 15m", cfg.CronSchedule)
	assert.Equal(t, "Europe/Istanbul", cfg.Timezone)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := WorkerConfig{
		CronSchedule: "not a schedule",
		Timezone:     "Mars/Olympus",
		CycleTimeout: -time.Second,
		HealthPort:   80,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron schedule")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "cycle timeout")
	assert.Contains(t, err.Error(), "health port")
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(slog.Default(), metricsForTest())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfigFromEnv_FailOpen(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "totally invalid")
	t.Setenv("CYCLE_TIMEOUT", "10s") // below the 1m floor

	cfg, err := LoadConfigFromEnv(slog.Default(), metricsForTest())
	require.NoError(t, err, "fail-open loading never errors")
	assert.Equal(t, DefaultConfig().CronSchedule, cfg.CronSchedule)
	assert.Equal(t, DefaultConfig().CycleTimeout, cfg.CycleTimeout)
}

func TestLoadConfigFromEnv_ValidOverrides(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "@every 30m")
	t.Setenv("WORKER_TIMEZONE", "UTC")
	t.Setenv("CYCLE_TIMEOUT", "20m")
	t.Setenv("WORKER_HEALTH_PORT", "9999")

	cfg, err := LoadConfigFromEnv(slog.Default(), metricsForTest())
	require.NoError(t, err)
	assert.Equal(t, "@every 30m", cfg.CronSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 20*time.Minute, cfg.CycleTimeout)
	assert.Equal(t, 9999, cfg.HealthPort)
}
