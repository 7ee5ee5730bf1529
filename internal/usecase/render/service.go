// Package render owns the render job state machine: creation, claiming,
// dispatch against the external media platform, bounded polling, artifact
// persistence, and retry. All job processing work is serialized through the
// scheduling loop; the persisted row is the single source of truth.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"songsmith/internal/domain/entity"
	"songsmith/internal/observability/metrics"
	"songsmith/internal/observability/tracing"
	"songsmith/internal/repository"
)

// PollConfig bounds the per-job poll loop.
type PollConfig struct {
	MaxIterations int           // iterations before the job is failed as timed out
	Interval      time.Duration // sleep between status checks
}

// DefaultPollConfig returns the production poll bounds: 180 iterations at
// 5 second spacing, a ceiling of roughly 15 minutes per job.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxIterations: 180,
		Interval:      5 * time.Second,
	}
}

// AlbumJobResult is the per-song outcome of a bulk generation run.
type AlbumJobResult struct {
	SongID  int64
	JobID   int64
	Success bool
	Err     error
}

// Service runs render jobs end-to-end against the external platform.
type Service struct {
	JobRepo      repository.JobRepository
	SongRepo     repository.SongRepository
	ArtifactRepo repository.ArtifactRepository
	Platforms    map[string]PlatformAdapter
	Store        ObjectStore
	Downloader   Downloader
	Poll         PollConfig
	logger       *slog.Logger
}

// NewService creates a render Service with the provided dependencies.
func NewService(
	jobRepo repository.JobRepository,
	songRepo repository.SongRepository,
	artifactRepo repository.ArtifactRepository,
	platforms map[string]PlatformAdapter,
	store ObjectStore,
	downloader Downloader,
	poll PollConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		JobRepo:      jobRepo,
		SongRepo:     songRepo,
		ArtifactRepo: artifactRepo,
		Platforms:    platforms,
		Store:        store,
		Downloader:   downloader,
		Poll:         poll,
		logger:       logger,
	}
}

// CreateJob persists a new pending job for the song. Dispatch is decoupled:
// nothing is sent to the platform until a scheduling cycle claims the job.
func (s *Service) CreateJob(ctx context.Context, songID int64, platformName string) (int64, error) {
	if _, ok := s.Platforms[platformName]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPlatform, platformName)
	}

	song, err := s.SongRepo.Get(ctx, songID)
	if err != nil {
		return 0, fmt.Errorf("get song %d: %w", songID, err)
	}
	if song == nil {
		return 0, fmt.Errorf("song %d: %w", songID, entity.ErrNotFound)
	}

	job := &entity.Job{
		SongID:       songID,
		PlatformName: platformName,
		Status:       entity.JobStatusPending,
		Progress:     0,
		RetryCount:   0,
	}
	id, err := s.JobRepo.Create(ctx, job)
	if err != nil {
		return 0, fmt.Errorf("create job for song %d: %w", songID, err)
	}

	s.logger.Info("render job created",
		slog.Int64("job_id", id),
		slog.Int64("song_id", songID),
		slog.String("platform", platformName))
	return id, nil
}

// GetJob returns the persisted state of a job, including its error message
// when the job has failed. Returns entity.ErrNotFound for unknown IDs.
func (s *Service) GetJob(ctx context.Context, jobID int64) (*entity.Job, error) {
	job, err := s.JobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %d: %w", jobID, entity.ErrNotFound)
	}
	return job, nil
}

// RetryJob re-queues a failed job for the next scheduling cycle. It refuses
// without mutating the job when the job is not failed or its retry budget is
// spent.
func (s *Service) RetryJob(ctx context.Context, jobID int64) error {
	job, err := s.JobRepo.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %d: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("job %d: %w", jobID, entity.ErrNotFound)
	}
	if job.Status != entity.JobStatusFailed {
		return fmt.Errorf("job %d has status %s: %w", jobID, job.Status, entity.ErrNotRetryable)
	}
	if !job.CanRetry() {
		return fmt.Errorf("job %d retried %d times: %w", jobID, job.RetryCount, entity.ErrRetryExhausted)
	}

	job.Status = entity.JobStatusPending
	job.Progress = 0
	job.ExternalTaskID = nil
	job.StatusMessage = nil
	job.ErrorMessage = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.RetryCount++

	if err := s.JobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("requeue job %d: %w", jobID, err)
	}
	s.logger.Info("render job requeued",
		slog.Int64("job_id", jobID),
		slog.Int("retry_count", job.RetryCount))
	return nil
}

// GenerateAlbum creates and processes one job per song in the album,
// strictly sequentially. One song's failure never aborts the remaining
// songs; each outcome is reported in the returned slice.
func (s *Service) GenerateAlbum(ctx context.Context, albumID int64, platformName string) ([]AlbumJobResult, error) {
	if _, ok := s.Platforms[platformName]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platformName)
	}
	songs, err := s.SongRepo.ListByAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("list songs for album %d: %w", albumID, err)
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("album %d: %w", albumID, ErrNoSongs)
	}

	results := make([]AlbumJobResult, 0, len(songs))
	for _, song := range songs {
		res := AlbumJobResult{SongID: song.ID}

		jobID, err := s.CreateJob(ctx, song.ID, platformName)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.JobID = jobID

		job, err := s.JobRepo.Get(ctx, jobID)
		if err != nil || job == nil {
			res.Err = fmt.Errorf("reload job %d: %w", jobID, err)
			results = append(results, res)
			continue
		}

		s.processJob(ctx, job)

		final, err := s.JobRepo.Get(ctx, jobID)
		switch {
		case err != nil:
			res.Err = fmt.Errorf("reload job %d: %w", jobID, err)
		case final != nil && final.Status == entity.JobStatusCompleted:
			res.Success = true
		case final != nil && final.ErrorMessage != nil:
			res.Err = fmt.Errorf("job %d failed: %s", jobID, *final.ErrorMessage)
		default:
			res.Err = fmt.Errorf("job %d did not complete", jobID)
		}
		results = append(results, res)
	}
	return results, nil
}

// ProcessNext claims at most one pending job (oldest first) and drives it to
// a terminal state. A run with no pending jobs is a no-op. Processing
// failures are persisted on the job and never returned; only claim-time
// persistence errors propagate.
func (s *Service) ProcessNext(ctx context.Context) error {
	job, err := s.JobRepo.OldestPending(ctx)
	if err != nil {
		return fmt.Errorf("claim pending job: %w", err)
	}
	if job == nil {
		return nil
	}
	s.processJob(ctx, job)
	return nil
}

// processJob is the dispatch boundary: every failure inside it is converted
// into persisted job state so the scheduling loop keeps running.
func (s *Service) processJob(ctx context.Context, job *entity.Job) {
	ctx, span := tracing.GetTracer().Start(ctx, "orchestrator.dispatch")
	span.SetAttributes(
		attribute.Int64("job.id", job.ID),
		attribute.Int64("song.id", job.SongID),
		attribute.String("platform", job.PlatformName),
	)
	defer span.End()

	start := time.Now()
	if err := s.dispatch(ctx, job); err != nil {
		s.logger.Error("render job failed",
			slog.Int64("job_id", job.ID),
			slog.Int64("song_id", job.SongID),
			slog.String("platform", job.PlatformName),
			slog.Any("error", err))
		s.failJob(ctx, job, err.Error())
		metrics.RecordRenderJob(job.PlatformName, "failed", time.Since(start))
		return
	}
	metrics.RecordRenderJob(job.PlatformName, "completed", time.Since(start))
}

// dispatch submits the job to the platform and polls it to completion. Any
// returned error becomes the job's error message.
func (s *Service) dispatch(ctx context.Context, job *entity.Job) error {
	adapter, ok := s.Platforms[job.PlatformName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlatform, job.PlatformName)
	}

	now := time.Now()
	job.Status = entity.JobStatusProcessing
	job.StartedAt = &now
	if err := s.JobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	song, err := s.SongRepo.Get(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("get song %d: %w", job.SongID, err)
	}
	if song == nil {
		return fmt.Errorf("song %d: %w", job.SongID, entity.ErrNotFound)
	}

	params := adapter.AutoFit(GenerateParams{
		Title:       song.Title,
		Lyrics:      song.Lyrics,
		StylePrompt: song.StylePrompt,
	})

	result, err := adapter.GenerateMusic(ctx, params)
	if err != nil {
		return fmt.Errorf("submit to %s: %w", job.PlatformName, err)
	}

	submitted := "submitted"
	job.ExternalTaskID = &result.ExternalTaskID
	job.Progress = 50
	job.StatusMessage = &submitted
	if err := s.JobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("persist external task id: %w", err)
	}
	s.logger.Info("render job submitted",
		slog.Int64("job_id", job.ID),
		slog.String("external_task_id", result.ExternalTaskID))

	return s.pollUntilTerminal(ctx, job, adapter)
}

// pollUntilTerminal runs the bounded poll loop. Transient status-check
// errors consume an iteration and are retried on the next one.
func (s *Service) pollUntilTerminal(ctx context.Context, job *entity.Job, adapter PlatformAdapter) error {
	taskID := *job.ExternalTaskID
	for i := 0; i < s.Poll.MaxIterations; i++ {
		if err := s.wait(ctx); err != nil {
			return fmt.Errorf("poll interrupted: %w", err)
		}

		status, err := adapter.CheckJobStatus(ctx, taskID)
		if err != nil {
			s.logger.Warn("status check failed, will retry",
				slog.Int64("job_id", job.ID),
				slog.Int("iteration", i+1),
				slog.Any("error", err))
			continue
		}

		switch {
		case status.Failed:
			metrics.RecordPollIterations(i + 1)
			detail := status.ErrorDetail
			if detail == "" {
				detail = "platform reported failure"
			}
			return fmt.Errorf("platform rejected job: %s", detail)

		case status.Completed:
			metrics.RecordPollIterations(i + 1)
			if err := s.finalize(ctx, job, status); err != nil {
				return err
			}
			return nil

		default:
			s.recordProgress(ctx, job, status)
		}
	}

	metrics.RecordPollIterations(s.Poll.MaxIterations)
	total := time.Duration(s.Poll.MaxIterations) * s.Poll.Interval
	return fmt.Errorf("generation timed out after %d minutes", int(total.Minutes()))
}

// recordProgress persists an intermediate milestone. Progress never moves
// backwards while the job is processing.
func (s *Service) recordProgress(ctx context.Context, job *entity.Job, status *JobStatusResult) {
	changed := false
	if status.Progress > job.Progress {
		job.Progress = status.Progress
		changed = true
	}
	if status.Message != "" && (job.StatusMessage == nil || *job.StatusMessage != status.Message) {
		msg := status.Message
		job.StatusMessage = &msg
		changed = true
	}
	if !changed {
		return
	}
	if err := s.JobRepo.Update(ctx, job); err != nil {
		s.logger.Warn("progress update failed",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err))
	}
}

// finalize downloads the finished render, stores it, records the artifact,
// and completes the job.
func (s *Service) finalize(ctx context.Context, job *entity.Job, status *JobStatusResult) error {
	if status.AudioURL == "" {
		return fmt.Errorf("platform reported success without an audio url")
	}

	data, contentType, err := s.Downloader.Download(ctx, status.AudioURL)
	if err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}

	format := status.Format
	if format == "" {
		format = "mp3"
	}
	key := fmt.Sprintf("artifacts/%d/%d/%d.%s", job.SongID, job.ID, time.Now().Unix(), format)
	locator, err := s.Store.Put(ctx, key, data, contentType)
	if err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}

	artifact := &entity.Artifact{
		JobID:           job.ID,
		SongID:          job.SongID,
		Locator:         locator,
		SizeBytes:       int64(len(data)),
		DurationSeconds: status.DurationSeconds,
		Format:          format,
		IsActive:        true,
	}
	if _, err := s.ArtifactRepo.CreateActive(ctx, artifact); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}

	now := time.Now()
	done := "completed"
	job.Status = entity.JobStatusCompleted
	job.Progress = 100
	job.StatusMessage = &done
	job.ErrorMessage = nil
	job.CompletedAt = &now
	if err := s.JobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	s.logger.Info("render job completed",
		slog.Int64("job_id", job.ID),
		slog.Int64("song_id", job.SongID),
		slog.String("locator", locator),
		slog.Int("size_bytes", len(data)))
	return nil
}

// failJob persists a terminal failure. A persistence error here is logged
// and swallowed; the sweeper will eventually reclaim the job.
func (s *Service) failJob(ctx context.Context, job *entity.Job, reason string) {
	now := time.Now()
	job.Status = entity.JobStatusFailed
	job.ErrorMessage = &reason
	job.CompletedAt = &now
	if err := s.JobRepo.Update(ctx, job); err != nil {
		s.logger.Error("failed to persist job failure",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err))
	}
}

// wait sleeps one poll interval, honoring context cancellation.
func (s *Service) wait(ctx context.Context) error {
	if s.Poll.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Poll.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
