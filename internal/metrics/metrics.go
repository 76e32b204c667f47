package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend request metrics
var (
	// APIRequestDuration tracks the duration of backend API calls
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lmx_api_request_duration_seconds",
			Help:    "Duration of backend API requests by method, path, and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestsTotal counts backend API calls
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lmx_api_requests_total",
			Help: "Total number of backend API requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)
)

// Log follower metrics
var (
	// PollTicks counts log poll ticks by outcome
	PollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lmx_log_poll_ticks_total",
			Help: "Total log poll ticks by outcome (success, failure, skipped)",
		},
		[]string{"outcome"},
	)

	// PollDeferrals counts pollers that yielded to another console process
	PollDeferrals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lmx_log_poll_deferrals_total",
			Help: "Times a poller deferred because another process holds a fresh poll stamp",
		},
	)
)

// Upload metrics
var (
	// UploadsRejected counts uploads rejected client-side before any bytes were sent
	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lmx_uploads_rejected_total",
			Help: "Uploads rejected client-side by reason (size_limit, invalid_task_id, bad_source)",
		},
		[]string{"reason"},
	)
)

// RecordAPIRequest records one backend API call.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordPollTick records a log poll tick outcome.
func RecordPollTick(outcome string) {
	PollTicks.WithLabelValues(outcome).Inc()
}

// RecordPollDeferral records a poller yielding to another process.
func RecordPollDeferral() {
	PollDeferrals.Inc()
}

// RecordUploadRejected records a client-side upload rejection.
func RecordUploadRejected(reason string) {
	UploadsRejected.WithLabelValues(reason).Inc()
}
