// Package metrics provides Prometheus metrics for the presence scan pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the presence service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsFailed    *prometheus.CounterVec
	sessionsCancelled prometheus.Counter
	activeSessions    prometheus.Gauge
	sessionDuration   prometheus.Histogram

	// Capture
	captureOpens      prometheus.Counter
	captureOpenErrors *prometheus.CounterVec
	captureCloses     prometheus.Counter

	// Sampling and recognition
	framesSampled      *prometheus.CounterVec
	decodeMisses       *prometheus.CounterVec
	decodeLatency      *prometheus.HistogramVec
	detectionsAccepted *prometheus.CounterVec
	staleResults       *prometheus.CounterVec

	// Submission
	submissions        prometheus.Counter
	submissionRetries  prometheus.Counter
	submissionFailures *prometheus.CounterVec
	submissionLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Detailed error tracking
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "presence",
		subsystem:        "scan",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	// Session lifecycle
	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of scan sessions started",
	})

	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_completed_total",
		Help:      "Total number of scan sessions that produced an attendance event",
	})

	m.sessionsFailed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sessions_failed_total",
			Help:      "Total number of failed scan sessions by reason",
		},
		[]string{"reason"},
	)

	m.sessionsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_cancelled_total",
		Help:      "Total number of scan sessions cancelled by the user",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Number of scan sessions currently in a non-terminal state",
	})

	m.sessionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_duration_seconds",
		Help:      "Histogram of scan session duration from start to terminal state",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// Capture
	m.captureOpens = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "capture_opens_total",
		Help:      "Total number of successful capture device opens",
	})

	m.captureOpenErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "capture_open_errors_total",
			Help:      "Total number of capture device open failures by kind",
		},
		[]string{"kind"},
	)

	m.captureCloses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "capture_closes_total",
		Help:      "Total number of capture device closes",
	})

	// Sampling and recognition
	m.framesSampled = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "frames_sampled_total",
			Help:      "Total number of frames handed to a recognition strategy",
		},
		[]string{"strategy"},
	)

	m.decodeMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decode_misses_total",
			Help:      "Total number of frames with no decodable code by strategy",
		},
		[]string{"strategy"},
	)

	m.decodeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decode_latency_milliseconds",
			Help:      "Histogram of per-frame decode latency by strategy",
			Buckets:   m.histogramBuckets,
		},
		[]string{"strategy"},
	)

	m.detectionsAccepted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detections_accepted_total",
			Help:      "Total number of detections promoted to an attendance event",
		},
		[]string{"strategy"},
	)

	m.staleResults = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stale_results_total",
			Help:      "Total number of detections discarded after the session was decided",
		},
		[]string{"strategy"},
	)

	// Submission
	m.submissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Total number of attendance events persisted",
	})

	m.submissionRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_retries_total",
		Help:      "Total number of retried submission attempts",
	})

	m.submissionFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submission_failures_total",
			Help:      "Total number of submissions that failed by class",
		},
		[]string{"class"},
	)

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_latency_milliseconds",
		Help:      "Histogram of attendance event submission latency",
		Buckets:   m.histogramBuckets,
	})

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "Histogram of HTTP request duration",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	// System
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordSessionStarted increments the sessions started counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionCompleted increments the sessions completed counter.
func RecordSessionCompleted() {
	globalManager.sessionsCompleted.Inc()
}

// RecordSessionFailed increments the failed sessions counter for a reason.
func RecordSessionFailed(reason string) {
	globalManager.sessionsFailed.WithLabelValues(reason).Inc()
}

// RecordSessionCancelled increments the cancelled sessions counter.
func RecordSessionCancelled() {
	globalManager.sessionsCancelled.Inc()
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordSessionDuration records a session's start-to-terminal duration.
func RecordSessionDuration(seconds float64) {
	globalManager.sessionDuration.Observe(seconds)
}

// RecordCaptureOpen increments the capture open counter.
func RecordCaptureOpen() {
	globalManager.captureOpens.Inc()
}

// RecordCaptureOpenError increments the capture open failure counter by kind.
func RecordCaptureOpenError(kind string) {
	globalManager.captureOpenErrors.WithLabelValues(kind).Inc()
}

// RecordCaptureClose increments the capture close counter.
func RecordCaptureClose() {
	globalManager.captureCloses.Inc()
}

// RecordFrameSampled increments the sampled frames counter for a strategy.
func RecordFrameSampled(strategy string) {
	globalManager.framesSampled.WithLabelValues(strategy).Inc()
}

// RecordDecodeMiss increments the decode miss counter for a strategy.
func RecordDecodeMiss(strategy string) {
	globalManager.decodeMisses.WithLabelValues(strategy).Inc()
}

// RecordDecodeLatency records per-frame decode latency for a strategy.
func RecordDecodeLatency(strategy string, latencyMs float64) {
	globalManager.decodeLatency.WithLabelValues(strategy).Observe(latencyMs)
}

// RecordDetectionAccepted increments the accepted detections counter.
func RecordDetectionAccepted(strategy string) {
	globalManager.detectionsAccepted.WithLabelValues(strategy).Inc()
}

// RecordStaleResult increments the stale results counter for a strategy.
func RecordStaleResult(strategy string) {
	globalManager.staleResults.WithLabelValues(strategy).Inc()
}

// RecordSubmission increments the persisted submissions counter.
func RecordSubmission() {
	globalManager.submissions.Inc()
}

// RecordSubmissionRetry increments the submission retries counter.
func RecordSubmissionRetry() {
	globalManager.submissionRetries.Inc()
}

// RecordSubmissionFailure increments the submission failures counter by class.
func RecordSubmissionFailure(class string) {
	globalManager.submissionFailures.WithLabelValues(class).Inc()
}

// RecordSubmissionLatency records attendance submission latency.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
