// Package metrics provides Prometheus metrics for the dwell estimation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the dwell service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Session pipeline metrics - one terminal outcome per session
	sessionsReceived  prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsInvalid   *prometheus.CounterVec
	sessionsErrored   prometheus.Counter
	sessionsDuplicate prometheus.Counter

	// Sensor fusion metrics
	refinementAdjustment prometheus.Histogram
	floorChangesDetected prometheus.Counter
	movementDetected     prometheus.Counter

	// Blending metrics
	blendConfidence prometheus.Histogram

	// Store metrics - transactional read-modify-write health
	txnRetries       prometheus.Counter
	txnConflicts     prometheus.Counter
	txnExhausted     prometheus.Counter
	partialUpdates   prometheus.Counter
	storeUpdateLatency prometheus.Histogram
	buildingsTracked prometheus.Gauge
	usersTracked     prometheus.Gauge

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
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
		namespace:        "dwell",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Handler returns the HTTP handler exposing the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.sessionsReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_received_total",
		Help:      "Total number of session records accepted for processing",
	})

	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_completed_total",
		Help:      "Total number of sessions that reached the completed status",
	})

	m.sessionsInvalid = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_invalid_total",
		Help:      "Total number of sessions rejected by validation, by reason",
	}, []string{"reason"})

	m.sessionsErrored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_errored_total",
		Help:      "Total number of sessions that terminated in the error status",
	})

	m.sessionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_duplicate_total",
		Help:      "Total number of duplicate session submissions detected",
	})

	m.refinementAdjustment = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refinement_adjustment_seconds",
		Help:      "Histogram of sensor-derived dwell time adjustments in seconds",
		Buckets:   []float64{0, 30, 60, 90, 120, 180, 300, 600},
	})

	m.floorChangesDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "floor_changes_detected_total",
		Help:      "Total number of floor changes inferred from pressure samples",
	})

	m.movementDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "movement_detected_total",
		Help:      "Total number of sessions with a positive movement signal",
	})

	m.blendConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blend_confidence",
		Help:      "Histogram of confidence weights used when blending estimates",
		Buckets:   []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
	})

	m.txnRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "txn_retries_total",
		Help:      "Total number of transaction retries after conflicts",
	})

	m.txnConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "txn_conflicts_total",
		Help:      "Total number of optimistic concurrency conflicts observed",
	})

	m.txnExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "txn_exhausted_total",
		Help:      "Total number of transactions that exhausted their retry budget",
	})

	m.partialUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "partial_updates_total",
		Help:      "Total number of sessions where only one of the two aggregate updates committed",
	})

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "update_latency_milliseconds",
		Help:      "Histogram of aggregate update transaction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.buildingsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "buildings_tracked",
		Help:      "Current number of building profiles in the store",
	})

	m.usersTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "users_tracked",
		Help:      "Current number of user profiles in the store",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "size",
		Help:      "Current number of sessions waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "capacity",
		Help:      "Configured capacity of the session queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "utilization",
		Help:      "Queue utilization ratio between 0 and 1",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueue_total",
		Help:      "Total number of sessions enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "dequeue_total",
		Help:      "Total number of sessions dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueue_errors_total",
		Help:      "Total number of failed enqueue attempts",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "count",
		Help:      "Number of pipeline workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "processing_latency_milliseconds",
		Help:      "Histogram of end-to-end session processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by endpoint and status code",
	}, []string{"endpoint", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds by endpoint",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Current allocated memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level recorders on the global manager.

func RecordSessionReceived()  { globalManager.sessionsReceived.Inc() }
func RecordSessionCompleted() { globalManager.sessionsCompleted.Inc() }
func RecordSessionInvalid(reason string) {
	globalManager.sessionsInvalid.WithLabelValues(reason).Inc()
}
func RecordSessionErrored()   { globalManager.sessionsErrored.Inc() }
func RecordSessionDuplicate() { globalManager.sessionsDuplicate.Inc() }

func RecordRefinementAdjustment(seconds float64) {
	globalManager.refinementAdjustment.Observe(seconds)
}
func RecordFloorChanges(n int) {
	if n > 0 {
		globalManager.floorChangesDetected.Add(float64(n))
	}
}
func RecordMovementDetected() { globalManager.movementDetected.Inc() }

func RecordBlendConfidence(c float64) { globalManager.blendConfidence.Observe(c) }

func RecordTxnRetry()    { globalManager.txnRetries.Inc() }
func RecordTxnConflict() { globalManager.txnConflicts.Inc() }
func RecordTxnExhausted() { globalManager.txnExhausted.Inc() }
func RecordPartialUpdate() { globalManager.partialUpdates.Inc() }
func RecordStoreUpdateLatency(ms float64) {
	globalManager.storeUpdateLatency.Observe(ms)
}
func UpdateBuildingsTracked(n int) { globalManager.buildingsTracked.Set(float64(n)) }
func UpdateUsersTracked(n int)     { globalManager.usersTracked.Set(float64(n)) }

func UpdateQueueSize(n int)             { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)         { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(u float64)  { globalManager.queueUtilization.Set(u) }
func RecordQueueEnqueue()               { globalManager.queueEnqueueRate.Inc() }
func RecordQueueDequeue()               { globalManager.queueDequeueRate.Inc() }
func RecordQueueEnqueueError()          { globalManager.queueEnqueueErrors.Inc() }

func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessingLatency.Observe(ms)
}
func RecordWorkerError() { globalManager.workerErrors.Inc() }

func RecordHTTPRequest(endpoint, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
}
func RecordHTTPRequestDuration(endpoint string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
