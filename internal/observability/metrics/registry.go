// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway metrics track provider attempts and token spend.
var (
	// InvocationAttemptsTotal counts provider attempts by provider, tier, and outcome
	InvocationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_invocation_attempts_total",
			Help: "Total number of provider invocation attempts",
		},
		[]string{"provider", "tier", "outcome"},
	)

	// InvocationLatency measures per-attempt provider latency in seconds
	InvocationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_invocation_latency_seconds",
			Help:    "Provider invocation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	// InvocationTokensTotal counts tokens by provider, model, and kind (prompt/completion)
	InvocationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_invocation_tokens_total",
			Help: "Total tokens consumed by provider invocations",
		},
		[]string{"provider", "model", "kind"},
	)
)

// Render job metrics track the orchestrator's state machine.
var (
	// RenderJobsTotal counts jobs reaching a terminal state by platform and outcome
	RenderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_jobs_total",
			Help: "Total render jobs by terminal outcome",
		},
		[]string{"platform", "outcome"},
	)

	// RenderJobDuration measures dispatch-to-terminal duration in seconds
	RenderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "render_job_duration_seconds",
			Help:    "Render job duration from dispatch to terminal state",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"platform"},
	)

	// RenderPollIterations measures how many poll iterations a job needed
	RenderPollIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_poll_iterations",
			Help:    "Poll iterations per dispatched render job",
			Buckets: prometheus.LinearBuckets(0, 20, 10),
		},
	)

	// JobsReclaimedTotal counts jobs force-failed by the reclamation sweeper
	JobsReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_jobs_reclaimed_total",
			Help: "Total jobs force-failed by the staleness sweeper",
		},
	)
)

// RecordInvocationAttempt records one provider attempt and its latency.
func RecordInvocationAttempt(provider, tier string, success bool, latency time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	InvocationAttemptsTotal.WithLabelValues(provider, tier, outcome).Inc()
	InvocationLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordInvocationTokens records token usage for one successful attempt.
func RecordInvocationTokens(provider, model string, promptTokens, completionTokens int) {
	InvocationTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	InvocationTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordRenderJob records a job reaching a terminal state.
func RecordRenderJob(platform, outcome string, duration time.Duration) {
	RenderJobsTotal.WithLabelValues(platform, outcome).Inc()
	RenderJobDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// RecordPollIterations records the poll count for one dispatched job.
func RecordPollIterations(n int) {
	RenderPollIterations.Observe(float64(n))
}

// RecordJobsReclaimed records the size of one sweeper reclamation batch.
func RecordJobsReclaimed(count int64) {
	JobsReclaimedTotal.Add(float64(count))
}
