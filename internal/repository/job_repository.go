// Package repository defines the persistence interfaces consumed by the
// use case layer. Concrete implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"songsmith/internal/domain/entity"
)

// JobRepository provides persistence for render jobs. The persisted row is
// the single source of truth for job state; there is no in-memory cache.
type JobRepository interface {
	// Create persists a new job and returns its assigned ID.
	Create(ctx context.Context, job *entity.Job) (int64, error)

	// Get retrieves a job by ID.
	// Returns (nil, nil) if the job is not found.
	Get(ctx context.Context, id int64) (*entity.Job, error)

	// OldestPending returns the pending job with the earliest creation time,
	// or (nil, nil) when no job is pending. The claim itself is a plain
	// read followed by Update; the design assumes a single orchestrator
	// instance (see DESIGN.md).
	OldestPending(ctx context.Context) (*entity.Job, error)

	// Update persists the mutable fields of a job (status, progress,
	// external task id, messages, retry count, timestamps).
	Update(ctx context.Context, job *entity.Job) error

	// FailStale force-fails every job still pending or processing whose
	// creation time is before cutoff, setting errorMessage to reason in a
	// single batch update. Returns the number of jobs reclaimed.
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}
