package repository

import (
	"context"

	"songsmith/internal/domain/entity"
)

// ArtifactRepository provides persistence for render artifacts.
type ArtifactRepository interface {
	// CreateActive inserts a new artifact with is_active=true and, in the
	// same transaction, deactivates any previously active artifact for the
	// same song. Returns the assigned artifact ID.
	CreateActive(ctx context.Context, artifact *entity.Artifact) (int64, error)

	// ActiveBySong returns the currently active artifact for a song.
	// Returns (nil, nil) if the song has no active artifact.
	ActiveBySong(ctx context.Context, songID int64) (*entity.Artifact, error)

	// ListByJob returns all artifacts produced by a job, newest first.
	ListByJob(ctx context.Context, jobID int64) ([]*entity.Artifact, error)
}
