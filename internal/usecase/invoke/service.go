package invoke

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"songsmith/internal/observability/tracing"
)

// Gateway drives synchronous generation calls across a tier of providers.
type Gateway interface {
	// Invoke tries the tier's providers in their fixed order and returns the
	// first successful canonical response. Tier "" means DefaultTier.
	// When every provider fails the returned error is an *AggregateError
	// listing one entry per attempted provider, in trial order.
	Invoke(ctx context.Context, req *Request, tier string) (*Response, error)
}

type gateway struct {
	tiers    Tiers
	resolver CredentialResolver
	adapters map[string]ProviderAdapter
	sink     TelemetrySink
}

// NewGateway creates a gateway over the given tier configuration, credential
// resolver, and provider adapters keyed by provider name. sink may be nil.
func NewGateway(tiers Tiers, resolver CredentialResolver, adapters map[string]ProviderAdapter, sink TelemetrySink) Gateway {
	return &gateway{
		tiers:    tiers,
		resolver: resolver,
		adapters: adapters,
		sink:     sink,
	}
}

// Invoke implements Gateway. Each provider in the tier gets exactly one
// attempt; results are never cached.
func (g *gateway) Invoke(ctx context.Context, req *Request, tier string) (*Response, error) {
	if tier == "" {
		tier = DefaultTier
	}
	tierCfg, ok := g.tiers[tier]
	if !ok {
		return nil, ErrUnknownTier
	}

	requestID := uuid.New().String()
	ctx, span := tracing.GetTracer().Start(ctx, "gateway.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("tier", tier),
		attribute.Int("providers", len(tierCfg.Providers)),
	)

	slog.InfoContext(ctx, "gateway invocation started",
		slog.String("request_id", requestID),
		slog.String("tier", tier),
		slog.Int("messages", len(req.Messages)))

	attempts := make([]AttemptError, 0, len(tierCfg.Providers))

	for _, providerName := range tierCfg.Providers {
		credential, err := g.resolver.Resolve(providerName)
		if err != nil {
			if errors.Is(err, ErrNoCredential) {
				// Unavailable, not a network failure: no telemetry record.
				slog.WarnContext(ctx, "provider unavailable, skipping",
					slog.String("request_id", requestID),
					slog.String("provider", providerName))
				attempts = append(attempts, AttemptError{Provider: providerName, Err: err})
				continue
			}
			attempts = append(attempts, AttemptError{Provider: providerName, Err: err})
			continue
		}

		adapter, ok := g.adapters[providerName]
		if !ok {
			slog.WarnContext(ctx, "no adapter registered for provider",
				slog.String("request_id", requestID),
				slog.String("provider", providerName))
			attempts = append(attempts, AttemptError{Provider: providerName, Err: ErrNoAdapter})
			continue
		}

		cfg := ProviderConfig{
			Name:       providerName,
			Model:      tierCfg.Models[providerName],
			Credential: credential,
		}

		start := time.Now()
		resp, err := adapter.Invoke(ctx, cfg, req)
		latency := time.Since(start)

		if err != nil {
			g.recordUsage(ctx, UsageRecord{
				Provider: providerName,
				Model:    cfg.Model,
				Tier:     tier,
				Latency:  latency,
				Success:  false,
			})
			slog.WarnContext(ctx, "provider attempt failed, trying next",
				slog.String("request_id", requestID),
				slog.String("provider", providerName),
				slog.String("model", cfg.Model),
				slog.Duration("latency", latency),
				slog.Any("error", err))
			attempts = append(attempts, AttemptError{Provider: providerName, Err: err})
			continue
		}

		g.recordUsage(ctx, UsageRecord{
			Provider:         providerName,
			Model:            resp.Model,
			Tier:             tier,
			Latency:          latency,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Success:          true,
		})
		slog.InfoContext(ctx, "gateway invocation succeeded",
			slog.String("request_id", requestID),
			slog.String("provider", providerName),
			slog.String("model", resp.Model),
			slog.Duration("latency", latency),
			slog.Int("total_tokens", resp.Usage.TotalTokens))
		return resp, nil
	}

	err := &AggregateError{Tier: tier, Attempts: attempts}
	slog.ErrorContext(ctx, "gateway invocation exhausted all providers",
		slog.String("request_id", requestID),
		slog.String("tier", tier),
		slog.Int("attempts", len(attempts)))
	span.RecordError(err)
	return nil, err
}

// recordUsage forwards one usage record to the sink. Telemetry is
// best-effort: a panicking or slow sink must not fail the invocation.
func (g *gateway) recordUsage(ctx context.Context, rec UsageRecord) {
	if g.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("telemetry sink panicked",
				slog.String("provider", rec.Provider),
				slog.Any("panic", r))
		}
	}()
	g.sink.Record(ctx, rec)
}
