package worker

import (
	"fmt"
	"log/slog"
	"time"

	"songsmith/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker process: the two
// schedules (orchestrator and sweeper), the poll bounds for in-flight
// renders, the staleness threshold for reclamation, and the health port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules; loading is fail-open so
// the worker always starts with a usable configuration.
type WorkerConfig struct {
	// OrchestratorSchedule is the cron spec for the job-claiming loop.
	// Default: "@every 30s"
	OrchestratorSchedule string

	// SweeperSchedule is the cron spec for the staleness reclamation scan.
	// Default: "@every 5m"
	SweeperSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "UTC"
	Timezone string

	// PollMaxIterations bounds the per-job status poll loop.
	// Range: 1-1000. Default: 180
	PollMaxIterations int

	// PollInterval is the sleep between status checks.
	// Range: 1s-1m. Default: 5s
	PollInterval time.Duration

	// StaleThreshold is how long a job may sit in pending/processing before
	// the sweeper force-fails it.
	// Range: 1m-4h. Default: 20 minutes
	StaleThreshold time.Duration

	// JobTimeout is the ceiling for one orchestrator firing, covering
	// dispatch plus the full poll loop.
	// Range: 1m-4h. Default: 20 minutes
	JobTimeout time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535. Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production default values:
// claim every 30 seconds, sweep every 5 minutes, 180 polls at 5 second
// spacing, 20 minute staleness threshold.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		OrchestratorSchedule: "@every 30s",
		SweeperSchedule:      "@every 5m",
		Timezone:             "UTC",
		PollMaxIterations:    180,
		PollInterval:         5 * time.Second,
		StaleThreshold:       20 * time.Minute,
		JobTimeout:           20 * time.Minute,
		HealthPort:           9091,
	}
}

// Validate checks the configuration values using the reusable validators
// from internal/pkg/config. All failures are collected and returned
// together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.OrchestratorSchedule); err != nil {
		errors = append(errors, fmt.Errorf("orchestrator schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.SweeperSchedule); err != nil {
		errors = append(errors, fmt.Errorf("sweeper schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.PollMaxIterations, 1, 1000); err != nil {
		errors = append(errors, fmt.Errorf("poll max iterations: %w", err))
	}
	if err := config.ValidateDuration(c.PollInterval, 1*time.Second, 1*time.Minute); err != nil {
		errors = append(errors, fmt.Errorf("poll interval: %w", err))
	}
	if err := config.ValidateDuration(c.StaleThreshold, 1*time.Minute, 4*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("stale threshold: %w", err))
	}
	if err := config.ValidateDuration(c.JobTimeout, 1*time.Minute, 4*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("job timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use the default, log a warning, record metrics
//  5. Never return an error - always return a valid configuration
//
// Environment variables:
//   - ORCHESTRATOR_SCHEDULE: Cron spec (default: "@every 30s")
//   - SWEEPER_SCHEDULE: Cron spec (default: "@every 5m")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - POLL_MAX_ITERATIONS: Integer 1-1000 (default: 180)
//   - POLL_INTERVAL: Duration string, e.g., "5s" (default: 5 seconds)
//   - STALE_THRESHOLD: Duration string, e.g., "20m" (default: 20 minutes)
//   - JOB_TIMEOUT: Duration string, e.g., "20m" (default: 20 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	warn := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("ORCHESTRATOR_SCHEDULE", cfg.OrchestratorSchedule, config.ValidateCronSchedule)
	cfg.OrchestratorSchedule = result.Value.(string)
	warn("orchestrator_schedule", result)

	result = config.LoadEnvWithFallback("SWEEPER_SCHEDULE", cfg.SweeperSchedule, config.ValidateCronSchedule)
	cfg.SweeperSchedule = result.Value.(string)
	warn("sweeper_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	warn("timezone", result)

	result = config.LoadEnvInt("POLL_MAX_ITERATIONS", cfg.PollMaxIterations, func(v int) error {
		return config.ValidateIntRange(v, 1, 1000)
	})
	cfg.PollMaxIterations = result.Value.(int)
	warn("poll_max_iterations", result)

	result = config.LoadEnvDuration("POLL_INTERVAL", cfg.PollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 1*time.Minute)
	})
	cfg.PollInterval = result.Value.(time.Duration)
	warn("poll_interval", result)

	result = config.LoadEnvDuration("STALE_THRESHOLD", cfg.StaleThreshold, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.StaleThreshold = result.Value.(time.Duration)
	warn("stale_threshold", result)

	result = config.LoadEnvDuration("JOB_TIMEOUT", cfg.JobTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.JobTimeout = result.Value.(time.Duration)
	warn("job_timeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	warn("health_port", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
