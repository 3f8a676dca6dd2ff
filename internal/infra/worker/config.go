// Package worker holds the scheduling shell around the pipeline: cron
// configuration, the health check server and the job metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"veritasnews/internal/pkg/config"
)

// WorkerConfig controls the scheduling and operational parameters of the
// pipeline worker. All fields have validated defaults; configuration
// loading is fail-open so a bad environment never prevents startup.
type WorkerConfig struct {
	// CronSchedule is the pipeline cycle schedule. Supports both cron
	// expressions and @every interval syntax.
	CronSchedule string

	// Timezone is the IANA timezone used for cron evaluation.
	Timezone string

	// CycleTimeout is the maximum duration of one full pipeline cycle.
	CycleTimeout time.Duration

	// HealthPort is the port of the health check HTTP server.
	HealthPort int
}

// DefaultConfig returns the production defaults: a cycle every fifteen
// minutes in Turkish local time, capped at ten minutes so a stuck cycle
// can never overlap the next but one.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "@every 15m",
		Timezone:     "Europe/Istanbul",
		CycleTimeout: 10 * time.Minute,
		HealthPort:   9091,
	}
}

// Validate checks all fields, aggregating every failure.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from the environment
// with validation and automatic fallback to defaults on failure. It never
// returns an error; invalid values produce warnings and metrics instead.
//
// Environment variables:
//   - CRON_SCHEDULE: cycle schedule (default: "@every 15m")
//   - WORKER_TIMEZONE: IANA timezone (default: "Europe/Istanbul")
//   - CYCLE_TIMEOUT: duration string (default: 10m, range 1m-2h)
//   - WORKER_HEALTH_PORT: port 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cron_schedule")
		metrics.RecordFallback("cron_schedule", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CronSchedule"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 2*time.Hour)
	})
	cfg.CycleTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cycle_timeout")
		metrics.RecordFallback("cycle_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CycleTimeout"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
