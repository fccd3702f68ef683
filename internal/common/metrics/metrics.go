// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "AI helper requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Latency of AI provider calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limited_total",
			Help: "AI helper requests rejected by the per-client limiter",
		},
		[]string{"backend"},
	)

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard step transitions",
		},
		[]string{"from", "to", "outcome"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	SessionStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_session_store_errors_total",
			Help: "Failed session store operations",
		},
		[]string{"operation"},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_live_sessions",
			Help: "Wizard sessions held in memory",
		},
	)
)

// Recorder adapts the package metrics to the observer interfaces of the
// wizard, session and submission packages.
type Recorder struct{}

func (Recorder) RecordTransition(from, to int, outcome string) {
	WizardTransitions.WithLabelValues(strconv.Itoa(from), strconv.Itoa(to), outcome).Inc()
}

func (Recorder) RecordSubmission(outcome string) {
	Submissions.WithLabelValues(outcome).Inc()
}

func (Recorder) RecordStoreError(operation string) {
	SessionStoreErrors.WithLabelValues(operation).Inc()
}

func (Recorder) RecordAIRequest(operation, outcome string, elapsed time.Duration) {
	AIRequests.WithLabelValues(operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (Recorder) RecordRateLimited(backend string) {
	RateLimited.WithLabelValues(backend).Inc()
}

func (Recorder) RecordJob(taskType, errorCode string, elapsed time.Duration) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
