// Package entity defines the core domain entities for the song generation
// system: songs, render jobs, and the artifacts produced by completed jobs.
// It also contains the job status state machine and domain-specific errors.
package entity

import "time"

// JobStatus represents the lifecycle state of a render job.
type JobStatus string

// Job status values. Transitions are monotonic along
// pending -> processing -> {completed|failed}; a retry moves
// failed -> pending while the retry budget allows it.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// MaxJobRetries is the number of times a failed job may be re-queued.
const MaxJobRetries = 3

// Job represents one asynchronous render request against an external
// media generation platform. Jobs are persisted rows; the orchestrator and
// the reclamation sweeper are the only writers.
type Job struct {
	ID             int64
	SongID         int64
	PlatformName   string
	Status         JobStatus
	Progress       int // 0-100, non-decreasing while processing
	ExternalTaskID *string
	StatusMessage  *string
	ErrorMessage   *string
	RetryCount     int
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// IsTerminal reports whether the job has reached a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsValid reports whether s is one of the known job statuses.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusFailed:
		// Retry path only; enforced separately against the retry budget.
		return next == JobStatusPending
	}
	return false
}

// CanRetry reports whether the job is eligible for another retry attempt.
// Only failed jobs with remaining budget can be re-queued.
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < MaxJobRetries
}
