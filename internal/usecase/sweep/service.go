// Package sweep reclaims render jobs abandoned in a non-terminal state.
// It runs on its own timer, independent of the orchestrator, and is the
// safety net for process crashes and silently stuck dispatch loops.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"songsmith/internal/observability/metrics"
	"songsmith/internal/repository"
)

// ReclamationReason is the fixed error message written to every job the
// sweeper force-fails. It is distinct from the orchestrator's own poll
// timeout message.
const ReclamationReason = "reclaimed: job exceeded the staleness threshold without completing"

// Notifier delivers best-effort out-of-band alerts. Failures never affect
// job state.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Service scans for stale jobs and force-fails them in one batch.
type Service struct {
	JobRepo   repository.JobRepository
	Notifier  Notifier
	Threshold time.Duration
	logger    *slog.Logger
}

// NewService creates a sweeper with the given staleness threshold. notifier
// may be nil to disable alerts.
func NewService(jobRepo repository.JobRepository, notifier Notifier, threshold time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		JobRepo:   jobRepo,
		Notifier:  notifier,
		Threshold: threshold,
		logger:    logger,
	}
}

// Sweep force-fails every job still pending or processing whose creation
// time is older than the staleness threshold, in a single batch update.
// When at least one job was reclaimed it sends exactly one aggregated
// notification; a scan that finds nothing is a no-op. Reclaimed jobs no
// longer match the filter, so repeated sweeps never re-notify.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.Threshold)
	count, err := s.JobRepo.FailStale(ctx, cutoff, ReclamationReason)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	metrics.RecordJobsReclaimed(count)
	s.logger.Warn("stale render jobs reclaimed",
		slog.Int64("count", count),
		slog.Duration("threshold", s.Threshold))

	if s.Notifier != nil {
		body := fmt.Sprintf("%d jobs timed out", count)
		if err := s.Notifier.Notify(ctx, "Render jobs reclaimed", body); err != nil {
			// Best effort only; the batch update already committed.
			s.logger.Warn("reclamation notification failed", slog.Any("error", err))
		}
	}
	return count, nil
}
