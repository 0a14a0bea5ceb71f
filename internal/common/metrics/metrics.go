// internal/common/metrics/metrics.go
package metrics

import (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	DocumentAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probate_document_analyses_total",
			Help: "Document analyses by outcome (structured, manual_review, failed)",
		},
		[]string{"outcome"},
	)

	DocumentAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "probate_document_analysis_duration_seconds",
			Help:    "Latency of a single document analysis including retries",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)

	ConsolidatedAssets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "probate_consolidated_assets",
			Help:    "Consolidated assets produced per discovery run",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probate_http_requests_total",
			Help: "HTTP API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

// Analysis outcomes.
const (
	OutcomeStructured   = "structured"
	OutcomeManualReview = "manual_review"
	OutcomeFailed       = "failed"
)

// ObserveJob records one finished job. errorCode is empty on success.
func ObserveJob(taskType string, start time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}

// TrackActive increments the active gauge and returns its decrement.
func TrackActive(taskType string) func() {
	g := WorkerJobsActive.WithLabelValues(taskType)
	g.Inc()
	return g.Dec
}
