package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsInvalidSpec(t *testing.T) {
	_, err := NewScheduler("orchestrator", "not a spec", 0,
		func(context.Context) error { return nil }, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator")
}

func TestScheduler_RunNow(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("test-run-now", "@every 1h", 0,
		func(context.Context) error {
			runs.Add(1)
			return nil
		}, nil, testWorkerMetrics())
	require.NoError(t, err)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_BusyGuardSkipsOverlappingFiring(t *testing.T) {
	m := testWorkerMetrics()
	skipsBefore := counterValue(t, m.CronJobSkipsTotal.WithLabelValues("test-busy"))

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	s, err := NewScheduler("test-busy", "@every 1h", 0,
		func(context.Context) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		}, nil, m)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow()
	}()
	<-started

	// This firing must be dropped, not queued.
	s.RunNow()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	skipsAfter := counterValue(t, m.CronJobSkipsTotal.WithLabelValues("test-busy"))
	assert.Equal(t, skipsBefore+1, skipsAfter)
}

func TestScheduler_GuardReleasedAfterFailure(t *testing.T) {
	calls := 0
	s, err := NewScheduler("test-failure", "@every 1h", 0,
		func(context.Context) error {
			calls++
			return errors.New("boom")
		}, nil, testWorkerMetrics())
	require.NoError(t, err)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, 2, calls, "a failed run must release the busy guard")
}

func TestScheduler_TimeoutBoundsJobContext(t *testing.T) {
	var ctxErr error
	s, err := NewScheduler("test-timeout", "@every 1h", 10*time.Millisecond,
		func(ctx context.Context) error {
			<-ctx.Done()
			ctxErr = ctx.Err()
			return ctx.Err()
		}, nil, nil)
	require.NoError(t, err)

	s.RunNow()
	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}

func TestScheduler_StartStop(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("test-start-stop", "@every 1h", 0,
		func(context.Context) error {
			runs.Add(1)
			return nil
		}, nil, nil)
	require.NoError(t, err)

	s.Start()
	s.Stop()
	// Stop must be idempotent with respect to in-flight work: with an hourly
	// schedule nothing fired in between.
	assert.Equal(t, int32(0), runs.Load())
}

func TestScheduler_RecordsSuccessMetrics(t *testing.T) {
	m := testWorkerMetrics()
	before := counterValue(t, m.CronJobRunsTotal.WithLabelValues("test-success", "success"))

	s, err := NewScheduler("test-success", "@every 1h", 0,
		func(context.Context) error { return nil }, nil, m)
	require.NoError(t, err)
	s.RunNow()

	after := counterValue(t, m.CronJobRunsTotal.WithLabelValues("test-success", "success"))
	assert.Equal(t, before+1, after)
}
