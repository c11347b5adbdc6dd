package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inference metrics
	InferenceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindsage_inference_attempts_total",
			Help: "Total number of attempts against remote inference endpoints",
		},
		[]string{"endpoint", "outcome"},
	)

	InferenceBackoff = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindsage_inference_backoff_seconds",
			Help:    "Backoff waited before retrying an inference call",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"endpoint"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindsage_inference_duration_seconds",
			Help:    "End-to-end inference call duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Analysis metrics
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindsage_analysis_duration_seconds",
			Help:    "Duration of a full journal analysis",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalysisFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindsage_analysis_fallbacks_total",
			Help: "Number of times a component degraded to its local fallback",
		},
		[]string{"component", "kind"},
	)

	CrisisFlags = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindsage_crisis_flags_total",
			Help: "Number of analyses where crisis language was detected",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindsage_http_requests_total",
			Help: "Total HTTP requests served by the gateway",
		},
		[]string{"route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindsage_http_rate_limited_total",
			Help: "Requests rejected by the inbound rate limiter",
		},
	)
)

// RecordInferenceAttempt counts one attempt with its outcome label
// (ok, loading, rate_limited, status, network, auth).
func RecordInferenceAttempt(endpoint, outcome string) {
	InferenceAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordBackoff observes one backoff wait.
func RecordBackoff(endpoint string, seconds float64) {
	InferenceBackoff.WithLabelValues(endpoint).Observe(seconds)
}

// RecordInferenceDuration observes a complete call.
func RecordInferenceDuration(endpoint string, seconds float64) {
	InferenceDuration.WithLabelValues(endpoint).Observe(seconds)
}

// RecordFallback counts a degraded component.
func RecordFallback(component, kind string) {
	AnalysisFallbacks.WithLabelValues(component, kind).Inc()
}
