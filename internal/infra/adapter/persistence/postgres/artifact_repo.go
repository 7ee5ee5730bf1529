package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"songsmith/internal/domain/entity"
	"songsmith/internal/repository"
)

type ArtifactRepo struct {
	db DBTX
}

func NewArtifactRepo(db DBTX) repository.ArtifactRepository {
	return &ArtifactRepo{db: db}
}

const artifactColumns = `id, job_id, song_id, locator, size_bytes, duration_seconds, format, is_active, created_at`

func scanArtifact(row interface{ Scan(...any) error }) (*entity.Artifact, error) {
	var a entity.Artifact
	if err := row.Scan(&a.ID, &a.JobID, &a.SongID, &a.Locator, &a.SizeBytes,
		&a.DurationSeconds, &a.Format, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateActive inserts a new active artifact and supersedes the previously
// active artifact for the same song inside one transaction, preserving the
// at-most-one-active-per-song invariant.
func (repo *ArtifactRepo) CreateActive(ctx context.Context, artifact *entity.Artifact) (int64, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("CreateActive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const deactivate = `
UPDATE artifacts
SET is_active = FALSE
WHERE song_id = $1 AND is_active = TRUE`
	if _, err := tx.ExecContext(ctx, deactivate, artifact.SongID); err != nil {
		return 0, fmt.Errorf("CreateActive: deactivate: %w", err)
	}

	const insert = `
INSERT INTO artifacts (job_id, song_id, locator, size_bytes, duration_seconds, format, is_active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, insert,
		artifact.JobID, artifact.SongID, artifact.Locator,
		artifact.SizeBytes, artifact.DurationSeconds, artifact.Format).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateActive: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("CreateActive: commit: %w", err)
	}
	return id, nil
}

func (repo *ArtifactRepo) ActiveBySong(ctx context.Context, songID int64) (*entity.Artifact, error) {
	query := `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE song_id = $1 AND is_active = TRUE
LIMIT 1`
	artifact, err := scanArtifact(repo.db.QueryRowContext(ctx, query, songID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveBySong: %w", err)
	}
	return artifact, nil
}

func (repo *ArtifactRepo) ListByJob(ctx context.Context, jobID int64) ([]*entity.Artifact, error) {
	query := `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE job_id = $1
ORDER BY created_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("ListByJob: %w", err)
	}
	defer func() { _ = rows.Close() }()

	artifacts := make([]*entity.Artifact, 0, 4)
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByJob: Scan: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}
