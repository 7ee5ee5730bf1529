package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs one named job on a cron schedule with a re-entrancy guard:
// a firing that arrives while the previous one is still running is skipped,
// never queued. Each Scheduler owns its own timer and guard, so independent
// instances (orchestrator, sweeper, tests) share no hidden state.
type Scheduler struct {
	name    string
	spec    string
	timeout time.Duration
	job     func(context.Context) error
	logger  *slog.Logger
	metrics *WorkerMetrics

	cron *cron.Cron
	busy atomic.Bool
}

// NewScheduler creates a scheduler for the given cron spec. The job runs
// under a context bounded by timeout; timeout <= 0 means no bound. metrics
// may be nil. The spec is validated here, not at Start.
func NewScheduler(
	name, spec string,
	timeout time.Duration,
	job func(context.Context) error,
	logger *slog.Logger,
	metrics *WorkerMetrics,
	opts ...cron.Option,
) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		name:    name,
		spec:    spec,
		timeout: timeout,
		job:     job,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(opts...),
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return s, nil
}

// Start begins firing on the schedule. It returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("job", s.name),
		slog.String("schedule", s.spec))
}

// Stop stops the timer and waits for an in-flight firing to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped", slog.String("job", s.name))
}

// RunNow executes one firing immediately, subject to the same busy guard as
// scheduled firings.
func (s *Scheduler) RunNow() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still active, skipping firing",
			slog.String("job", s.name))
		if s.metrics != nil {
			s.metrics.RecordJobSkip(s.name)
		}
		return
	}
	defer s.busy.Store(false)

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.job(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordJobDuration(s.name, elapsed.Seconds())
	}
	if err != nil {
		s.logger.Error("scheduled run failed",
			slog.String("job", s.name),
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.RecordJobRun(s.name, "failure")
		}
		return
	}
	s.logger.Info("scheduled run finished",
		slog.String("job", s.name),
		slog.Duration("duration", elapsed))
	if s.metrics != nil {
		s.metrics.RecordJobRun(s.name, "success")
		s.metrics.RecordLastSuccess(s.name)
	}
}
