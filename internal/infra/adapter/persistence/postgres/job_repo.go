// Package postgres implements the repository interfaces against PostgreSQL
// using database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"songsmith/internal/domain/entity"
	"songsmith/internal/repository"
)

// DBTX is the database surface the repositories need. Both *sql.DB and the
// circuit-breaker wrapper in internal/resilience/circuitbreaker satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type JobRepo struct {
	db DBTX
}

func NewJobRepo(db DBTX) repository.JobRepository {
	return &JobRepo{db: db}
}

const jobColumns = `id, song_id, platform_name, status, progress, external_task_id,
status_message, error_message, retry_count, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (*entity.Job, error) {
	var job entity.Job
	if err := row.Scan(&job.ID, &job.SongID, &job.PlatformName, &job.Status,
		&job.Progress, &job.ExternalTaskID, &job.StatusMessage, &job.ErrorMessage,
		&job.RetryCount, &job.StartedAt, &job.CompletedAt, &job.CreatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func (repo *JobRepo) Create(ctx context.Context, job *entity.Job) (int64, error) {
	const query = `
INSERT INTO render_jobs (song_id, platform_name, status, progress, retry_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		job.SongID, job.PlatformName, job.Status, job.Progress, job.RetryCount).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *JobRepo) Get(ctx context.Context, id int64) (*entity.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM render_jobs
WHERE id = $1
LIMIT 1`
	job, err := scanJob(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return job, nil
}

func (repo *JobRepo) OldestPending(ctx context.Context) (*entity.Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM render_jobs
WHERE status = $1
ORDER BY created_at ASC
LIMIT 1`
	job, err := scanJob(repo.db.QueryRowContext(ctx, query, entity.JobStatusPending))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("OldestPending: %w", err)
	}
	return job, nil
}

func (repo *JobRepo) Update(ctx context.Context, job *entity.Job) error {
	const query = `
UPDATE render_jobs
SET status = $1, progress = $2, external_task_id = $3, status_message = $4,
    error_message = $5, retry_count = $6, started_at = $7, completed_at = $8
WHERE id = $9`
	res, err := repo.db.ExecContext(ctx, query,
		job.Status, job.Progress, job.ExternalTaskID, job.StatusMessage,
		job.ErrorMessage, job.RetryCount, job.StartedAt, job.CompletedAt, job.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Update: job %d: %w", job.ID, entity.ErrNotFound)
	}
	return nil
}

// FailStale reclaims abandoned jobs in one batch statement so that a second
// sweep over the same rows finds nothing to update.
func (repo *JobRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	const query = `
UPDATE render_jobs
SET status = $1, error_message = $2, completed_at = now()
WHERE status IN ($3, $4) AND created_at < $5`
	res, err := repo.db.ExecContext(ctx, query,
		entity.JobStatusFailed, reason,
		entity.JobStatusPending, entity.JobStatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("FailStale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("FailStale: RowsAffected: %w", err)
	}
	return affected, nil
}
