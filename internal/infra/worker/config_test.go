package worker

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "@every 30s", cfg.OrchestratorSchedule)
	assert.Equal(t, "@every 5m", cfg.SweeperSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 180, cfg.PollMaxIterations)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 20*time.Minute, cfg.StaleThreshold)
	assert.Equal(t, 20*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 9091, cfg.HealthPort)

	assert.NoError(t, cfg.Validate())
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{
			name:   "valid custom config",
			mutate: func(c *WorkerConfig) { c.OrchestratorSchedule = "*/2 * * * *" },
		},
		{
			name:    "invalid orchestrator schedule",
			mutate:  func(c *WorkerConfig) { c.OrchestratorSchedule = "not a schedule" },
			wantErr: "orchestrator schedule",
		},
		{
			name:    "empty sweeper schedule",
			mutate:  func(c *WorkerConfig) { c.SweeperSchedule = "" },
			wantErr: "sweeper schedule",
		},
		{
			name:    "invalid timezone",
			mutate:  func(c *WorkerConfig) { c.Timezone = "Mars/Olympus_Mons" },
			wantErr: "timezone",
		},
		{
			name:    "poll iterations too low",
			mutate:  func(c *WorkerConfig) { c.PollMaxIterations = 0 },
			wantErr: "poll max iterations",
		},
		{
			name:    "poll interval too long",
			mutate:  func(c *WorkerConfig) { c.PollInterval = 5 * time.Minute },
			wantErr: "poll interval",
		},
		{
			name:    "stale threshold too short",
			mutate:  func(c *WorkerConfig) { c.StaleThreshold = 10 * time.Second },
			wantErr: "stale threshold",
		},
		{
			name:    "privileged health port",
			mutate:  func(c *WorkerConfig) { c.HealthPort = 80 },
			wantErr: "health port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkerConfig_Validate_CollectsMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OrchestratorSchedule = "bad"
	cfg.Timezone = "bad"
	cfg.HealthPort = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator schedule")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "health port")
}

func TestLoadConfigFromEnv_AllValid(t *testing.T) {
	t.Setenv("ORCHESTRATOR_SCHEDULE", "@every 1m")
	t.Setenv("SWEEPER_SCHEDULE", "@every 10m")
	t.Setenv("WORKER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("POLL_MAX_ITERATIONS", "90")
	t.Setenv("POLL_INTERVAL", "10s")
	t.Setenv("STALE_THRESHOLD", "30m")
	t.Setenv("JOB_TIMEOUT", "25m")
	t.Setenv("WORKER_HEALTH_PORT", "9191")

	cfg, err := LoadConfigFromEnv(slog.Default(), testWorkerMetrics())
	require.NoError(t, err)

	assert.Equal(t, "@every 1m", cfg.OrchestratorSchedule)
	assert.Equal(t, "@every 10m", cfg.SweeperSchedule)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 90, cfg.PollMaxIterations)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.StaleThreshold)
	assert.Equal(t, 25*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 9191, cfg.HealthPort)
}

func TestLoadConfigFromEnv_MissingEnvUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(slog.Default(), testWorkerMetrics())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ORCHESTRATOR_SCHEDULE", "every thirty seconds")
	t.Setenv("POLL_MAX_ITERATIONS", "ten thousand")
	t.Setenv("STALE_THRESHOLD", "10s") // below the 1m floor

	cfg, err := LoadConfigFromEnv(slog.Default(), testWorkerMetrics())
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.OrchestratorSchedule, cfg.OrchestratorSchedule)
	assert.Equal(t, defaults.PollMaxIterations, cfg.PollMaxIterations)
	assert.Equal(t, defaults.StaleThreshold, cfg.StaleThreshold)
	// Fail-open: the returned config must always validate.
	assert.NoError(t, cfg.Validate())
}
