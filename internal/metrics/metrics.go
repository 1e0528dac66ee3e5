package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// APIRequestsTotal tracks outbound HTTP calls to the upstream API.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankin_api_requests_total",
			Help: "Total number of upstream API requests (by client, method, and status).",
		},
		[]string{"client", "method", "status"},
	)

	// APIRequestDuration measures the duration of outbound API calls.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bankin_api_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"client", "method"},
	)

	// PagesFetched counts pages walked per resource.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankin_pages_fetched_total",
			Help: "Number of paginated pages fetched by resource.",
		},
		[]string{"resource"},
	)

	// DuplicatesDropped counts items discarded because their key was already seen.
	DuplicatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankin_duplicates_dropped_total",
			Help: "Number of duplicate items dropped during pagination by resource.",
		},
		[]string{"resource"},
	)

	// IsolatedFailures counts accounts whose transaction feed failed and was reported empty.
	IsolatedFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankin_transactions_isolated_failures_total",
			Help: "Number of accounts whose transactions could not be fetched.",
		},
	)

	// NATSMessageCount tracks published NATS messages by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankin_nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bankin_nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// SinkErrors counts failed writes to optional report sinks.
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankin_sink_errors_total",
			Help: "Number of failed report sink writes by sink.",
		},
		[]string{"sink"},
	)

	// RunDuration measures a full collection run by outcome.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bankin_run_duration_seconds",
			Help:    "Duration of collection runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"outcome"},
	)
)

// ObserveRequest records one upstream call.
func ObserveRequest(client, method, status string, start time.Time) {
	APIRequestsTotal.WithLabelValues(client, method, status).Inc()
	ObserveDuration(APIRequestDuration, start, client, method)
}

// IncPage increments the page counter for a resource.
func IncPage(resource string) {
	PagesFetched.WithLabelValues(resource).Inc()
}

// AddDuplicates adds n dropped duplicates for a resource.
func AddDuplicates(resource string, n int) {
	if n > 0 {
		DuplicatesDropped.WithLabelValues(resource).Add(float64(n))
	}
}

// IncIsolatedFailure records one account whose transactions were skipped.
func IncIsolatedFailure() {
	IsolatedFailures.Inc()
}

// IncNATSMessage records one publish attempt.
func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

// IncSinkError records one failed sink write.
func IncSinkError(sink string) {
	SinkErrors.WithLabelValues(sink).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}

// Push sends every registered metric to a Prometheus Pushgateway under the given job.
func Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}
