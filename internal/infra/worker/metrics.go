package worker

import (
	"songsmith/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// scheduler metrics for cron job execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Scheduler metrics (labelled by job name, e.g. "orchestrator", "sweeper"):
//   - worker_cron_job_runs_total: Total cron job runs by job and status
//   - worker_cron_job_duration_seconds: Duration histogram of job execution
//   - worker_cron_job_skips_total: Firings skipped by the busy guard
//   - worker_cron_job_last_success_timestamp: Unix timestamp of last success
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// CronJobRunsTotal counts the total number of cron job runs.
	// Labels: job, status (success, failure)
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures the duration of cron job execution.
	// Labels: job
	CronJobDurationSeconds *prometheus.HistogramVec

	// CronJobSkipsTotal counts firings skipped because the previous firing
	// of the same job was still running.
	// Labels: job
	CronJobSkipsTotal *prometheus.CounterVec

	// CronJobLastSuccessTimestamp records the Unix timestamp of the last
	// successful run per job.
	// Labels: job
	CronJobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized and registered via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by job and status (success/failure)",
		}, []string{"job", "status"}),

		CronJobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800}, // 1s .. 30m
		}, []string{"job"}),

		CronJobSkipsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_skips_total",
			Help: "Total cron firings skipped because the previous run was still active",
		}, []string{"job"}),

		CronJobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cron job run",
		}, []string{"job"}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordJobRun increments the job run counter for the given job and status.
// Status should be either "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.CronJobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes one job execution duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.CronJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordJobSkip increments the busy-guard skip counter for the job.
func (m *WorkerMetrics) RecordJobSkip(job string) {
	m.CronJobSkipsTotal.WithLabelValues(job).Inc()
}

// RecordLastSuccess sets the last-success gauge for the job to now.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.CronJobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
