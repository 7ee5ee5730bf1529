package invoke

import (
	"context"
	"time"
)

// UsageRecord is one telemetry entry for one provider attempt, successful or
// not. Providers skipped for a missing credential produce no record.
type UsageRecord struct {
	Provider         string
	Model            string
	Tier             string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Success          bool
}

// TelemetrySink receives per-attempt usage records. Implementations must be
// safe for concurrent use; a sink failure never blocks or fails the
// invocation that produced the record.
type TelemetrySink interface {
	Record(ctx context.Context, rec UsageRecord)
}
