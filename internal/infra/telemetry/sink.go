// Package telemetry persists per-attempt gateway usage to logs and metrics.
package telemetry

import (
	"context"
	"log/slog"

	"songsmith/internal/observability/metrics"
	"songsmith/internal/usecase/invoke"
)

// UsageSink writes each provider attempt to the structured log and the
// Prometheus registry.
type UsageSink struct {
	logger *slog.Logger
}

// NewUsageSink creates a telemetry sink backed by the given logger.
func NewUsageSink(logger *slog.Logger) *UsageSink {
	return &UsageSink{logger: logger}
}

// Record implements invoke.TelemetrySink.
func (s *UsageSink) Record(ctx context.Context, rec invoke.UsageRecord) {
	metrics.RecordInvocationAttempt(rec.Provider, rec.Tier, rec.Success, rec.Latency)
	if rec.Success {
		metrics.RecordInvocationTokens(rec.Provider, rec.Model, rec.PromptTokens, rec.CompletionTokens)
	}

	s.logger.InfoContext(ctx, "provider attempt",
		slog.String("provider", rec.Provider),
		slog.String("model", rec.Model),
		slog.String("tier", rec.Tier),
		slog.Bool("success", rec.Success),
		slog.Duration("latency", rec.Latency),
		slog.Int("prompt_tokens", rec.PromptTokens),
		slog.Int("completion_tokens", rec.CompletionTokens),
		slog.Int("total_tokens", rec.TotalTokens),
	)
}
