package entity

import "time"

// Artifact is the durable output of a completed render job: a reference to
// the stored audio blob plus its metadata. Older artifacts for the same song
// are retained but superseded; at most one is active per song at a time.
type Artifact struct {
	ID              int64
	JobID           int64
	SongID          int64
	Locator         string // durable object store reference (URL or key)
	SizeBytes       int64
	DurationSeconds *float64
	Format          string
	IsActive        bool
	CreatedAt       time.Time
}
