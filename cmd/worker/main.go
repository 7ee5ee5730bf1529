package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"songsmith/internal/infra/adapter/persistence/postgres"
	"songsmith/internal/infra/db"
	"songsmith/internal/infra/notifier"
	"songsmith/internal/infra/objectstore"
	"songsmith/internal/infra/platform"
	workerPkg "songsmith/internal/infra/worker"
	"songsmith/internal/resilience/circuitbreaker"
	"songsmith/internal/usecase/render"
	"songsmith/internal/usecase/sweep"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("orchestrator_schedule", workerConfig.OrchestratorSchedule),
		slog.String("sweeper_schedule", workerConfig.SweeperSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("poll_max_iterations", workerConfig.PollMaxIterations),
		slog.Duration("poll_interval", workerConfig.PollInterval),
		slog.Duration("stale_threshold", workerConfig.StaleThreshold),
		slog.Int("health_port", workerConfig.HealthPort))

	notifyChannel := setupNotifier(logger)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthServer.RegisterScheduler("orchestrator")
	healthServer.RegisterScheduler("sweeper")
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	guardedDB := circuitbreaker.NewDBCircuitBreaker(database)
	renderService := setupRenderService(logger, guardedDB, workerConfig)
	sweepService := sweep.NewService(
		postgres.NewJobRepo(guardedDB),
		notifyChannel,
		workerConfig.StaleThreshold,
		logger,
	)

	loc, err := time.LoadLocation(workerConfig.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", workerConfig.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	orchestrator, err := workerPkg.NewScheduler(
		"orchestrator",
		workerConfig.OrchestratorSchedule,
		workerConfig.JobTimeout,
		renderService.ProcessNext,
		logger, workerMetrics,
		cron.WithLocation(loc),
	)
	if err != nil {
		logger.Error("failed to schedule orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	sweeper, err := workerPkg.NewScheduler(
		"sweeper",
		workerConfig.SweeperSchedule,
		time.Minute,
		func(ctx context.Context) error {
			_, err := sweepService.Sweep(ctx)
			return err
		},
		logger, workerMetrics,
		cron.WithLocation(loc),
	)
	if err != nil {
		logger.Error("failed to schedule sweeper", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator.Start()
	sweeper.Start()
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("orchestrator_schedule", workerConfig.OrchestratorSchedule),
		slog.String("sweeper_schedule", workerConfig.SweeperSchedule),
		slog.String("timezone", workerConfig.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	orchestrator.Stop()
	sweeper.Stop()
	logger.Info("worker stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies the idempotent
// schema migrations. The migrations are safe to run on every start, so the
// worker owns its own schema and needs no external migration step.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupRenderService wires the render orchestrator: repositories, the
// platform adapter registry, the artifact store, and the poll bounds from
// worker configuration.
func setupRenderService(logger *slog.Logger, database postgres.DBTX, cfg *workerPkg.WorkerConfig) *render.Service {
	platforms := platform.NewAdapters()
	for name := range platforms {
		logger.Info("platform adapter registered", slog.String("platform", name))
	}

	return render.NewService(
		postgres.NewJobRepo(database),
		postgres.NewSongRepo(database),
		postgres.NewArtifactRepo(database),
		platforms,
		createArtifactStore(logger),
		objectstore.NewHTTPDownloader(),
		render.PollConfig{
			MaxIterations: cfg.PollMaxIterations,
			Interval:      cfg.PollInterval,
		},
		logger,
	)
}

// createArtifactStore selects the artifact store backend. When
// ARTIFACT_UPLOAD_URL is set, finished audio is uploaded over HTTP;
// otherwise it lands on the local filesystem under ARTIFACT_DIR.
func createArtifactStore(logger *slog.Logger) render.ObjectStore {
	if uploadURL := os.Getenv("ARTIFACT_UPLOAD_URL"); uploadURL != "" {
		logger.Info("using HTTP artifact store", slog.String("upload_url", uploadURL))
		return objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
			UploadBaseURL: uploadURL,
			PublicBaseURL: os.Getenv("ARTIFACT_PUBLIC_URL"),
			AuthToken:     os.Getenv("ARTIFACT_UPLOAD_TOKEN"),
			Timeout:       2 * time.Minute,
		})
	}

	dir := os.Getenv("ARTIFACT_DIR")
	if dir == "" {
		dir = "./artifacts"
	}
	logger.Info("using filesystem artifact store", slog.String("dir", dir))
	return objectstore.NewFSStore(dir)
}

// setupNotifier builds the notification fan-out for sweeper alerts. Both
// channels are optional; with neither configured a no-op notifier is used
// so the sweeper never has a nil dependency.
func setupNotifier(logger *slog.Logger) sweep.Notifier {
	var channels []notifier.Notifier

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notifier.NewDiscordNotifier(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notifier.NewSlackNotifier(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	if len(channels) == 0 {
		return notifier.NewNoOpNotifier()
	}
	return notifier.NewMulti(channels...)
}

// loadDiscordConfig loads Discord configuration from environment variables.
//
// Environment variables:
//   - DISCORD_ENABLED: Boolean flag to enable Discord notifications (default: false)
//   - DISCORD_WEBHOOK_URL: Discord webhook URL (required if enabled)
//
// Returns:
//   - notifier.DiscordConfig: Configuration with validation applied
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}

	// Validate webhook URL format
	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable Slack notifications (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
//
// Returns:
//   - notifier.SlackConfig: Configuration with validation applied
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	// Validate webhook URL format
	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}
