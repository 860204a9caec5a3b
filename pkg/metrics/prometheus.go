// Package metrics provides Prometheus metrics for the stride feedback service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the stride service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Serving path
	feedbackRequests *prometheus.CounterVec
	feedbackLatency  prometheus.Histogram
	unknownSubgoals  prometheus.Counter
	conditionAssigns *prometheus.CounterVec

	// Event log
	eventsLogged    *prometheus.CounterVec
	eventsDuplicate prometheus.Counter

	// Model lifecycle
	rebuildAttempts  *prometheus.CounterVec
	rebuildDuration  prometheus.Histogram
	degenerateRanges prometheus.Counter
	modelsPublished  prometheus.Gauge
	storeLatency     *prometheus.HistogramVec

	// Queue and workers
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueue   prometheus.Counter
	queueDequeue   prometheus.Counter
	queueErrors    prometheus.Counter
	workerCount    prometheus.Gauge
	workerErrors   prometheus.Counter
	workerDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stride",
		subsystem:        "feedback",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.feedbackRequests = m.counterVec("feedback_requests_total",
		"Feedback requests by outcome (shown, control, no_model, error)", "outcome")
	m.feedbackLatency = m.histogram("feedback_latency_milliseconds",
		"Feedback generation latency in milliseconds")
	m.unknownSubgoals = m.counter("unknown_subgoal_total",
		"Requested subgoals that fell back to the whole-model score")
	m.conditionAssigns = m.counterVec("condition_assignments_total",
		"Condition assignment decisions by condition", "condition")

	m.eventsLogged = m.counterVec("events_logged_total",
		"Events appended to the event log by type", "event_type")
	m.eventsDuplicate = m.counter("events_duplicate_total",
		"Events rejected because their id was already logged")

	m.rebuildAttempts = m.counterVec("rebuild_attempts_total",
		"Model rebuild attempts by outcome (published, skipped, failed)", "outcome")
	m.rebuildDuration = m.histogram("rebuild_duration_milliseconds",
		"Model rebuild duration in milliseconds")
	m.degenerateRanges = m.counter("degenerate_score_range_total",
		"Fits whose score range collapsed and was reset to (0,1)")
	m.modelsPublished = m.gauge("models_published",
		"Number of problems with a published model")
	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Model store operation latency in milliseconds", "operation")

	m.queueSize = m.gauge("queue_size", "Current number of pending rebuild jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum rebuild queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of rebuild jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of rebuild jobs dequeued")
	m.queueErrors = m.counter("queue_enqueue_errors_total", "Total number of rebuild enqueue errors")
	m.workerCount = m.gauge("worker_count", "Current number of rebuild workers")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")
	m.workerDuration = m.histogram("worker_processing_latency_milliseconds",
		"Worker job processing latency in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordFeedback counts a feedback request with its outcome and latency.
func RecordFeedback(outcome string, latencyMs float64) {
	globalManager.feedbackRequests.WithLabelValues(outcome).Inc()
	globalManager.feedbackLatency.Observe(latencyMs)
}

// RecordUnknownSubgoal counts a subgoal fallback.
func RecordUnknownSubgoal() {
	globalManager.unknownSubgoals.Inc()
}

// RecordConditionAssignment counts an assignment decision.
func RecordConditionAssignment(intervention bool) {
	label := "control"
	if intervention {
		label = "intervention"
	}
	globalManager.conditionAssigns.WithLabelValues(label).Inc()
}

// RecordEventLogged counts an appended event.
func RecordEventLogged(eventType string) {
	globalManager.eventsLogged.WithLabelValues(eventType).Inc()
}

// RecordEventDuplicate counts a rejected duplicate event.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordRebuild counts a rebuild attempt and its duration.
func RecordRebuild(outcome string, durationMs float64) {
	globalManager.rebuildAttempts.WithLabelValues(outcome).Inc()
	globalManager.rebuildDuration.Observe(durationMs)
}

// RecordDegenerateRange counts a degenerate fit.
func RecordDegenerateRange() {
	globalManager.degenerateRanges.Inc()
}

// UpdateModelsPublished sets the number of published models.
func UpdateModelsPublished(count int) {
	globalManager.modelsPublished.Set(float64(count))
}

// RecordStoreLatency records a model store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerDuration.Observe(latencyMs)
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
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
