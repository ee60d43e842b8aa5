// Package metrics provides Prometheus metrics for the CommSkill analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultLatencyBuckets cover fast pure scoring (sub-millisecond) up to slow
// upstream annotation calls (minutes).
var defaultLatencyBuckets = []float64{0.5, 1, 5, 10, 50, 100, 500, 1000, 5000, 15000, 60000, 180000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the CommSkill service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Analysis pipeline
	analysesCompleted prometheus.Counter
	analysesFailed    *prometheus.CounterVec
	analysesDuplicate prometheus.Counter
	scoringLatency    prometheus.Histogram
	scoringFallbacks  *prometheus.CounterVec
	dimensionScore    *prometheus.HistogramVec
	providerLatency   *prometheus.HistogramVec
	providerErrors    *prometheus.CounterVec
	mediaCleanupFails prometheus.Counter
	storedRecords     prometheus.Gauge

	// Coach
	coachRequests *prometheus.CounterVec

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge
	workerJobLatency prometheus.Histogram

	// Errors
	errorsTotal *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

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
		namespace:      "commskill",
		subsystem:      "analysis",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.analysesCompleted = m.counter("completed_total", "Total number of analyses scored and persisted")
	m.analysesFailed = m.counterVec("failed_total", "Total number of analyses aborted, by stage", "stage")
	m.analysesDuplicate = m.counter("duplicate_total", "Total number of analysis requests rejected as duplicates")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time spent in the scoring core", m.latencyBuckets)
	m.scoringFallbacks = m.counterVec("scoring_fallbacks_total", "Scores resolved from fallback constants, by dimension", "dimension")
	m.dimensionScore = m.histogramVec("dimension_score", "Distribution of computed scores, by dimension",
		[]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, "dimension")
	m.providerLatency = m.histogramVec("provider_latency_milliseconds", "Latency of upstream annotation calls", m.latencyBuckets, "provider")
	m.providerErrors = m.counterVec("provider_errors_total", "Upstream annotation failures", "provider")
	m.mediaCleanupFails = m.counter("media_cleanup_failures_total", "Media objects that could not be removed after analysis")
	m.storedRecords = m.gauge("stored_records", "Number of analysis records currently stored")

	m.coachRequests = m.counterVec("coach_requests_total", "Coach LLM calls, by kind and outcome", "kind", "outcome")

	m.queueSize = m.gauge("queue_size", "Current number of queued analysis jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued analysis jobs")
	m.queueRejected = m.counterVec("queue_rejected_total", "Jobs rejected by the queue, by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of analysis workers")
	m.workerBusy = m.gauge("worker_busy", "Number of workers currently processing a job")
	m.workerJobLatency = m.histogram("worker_job_latency_milliseconds", "End-to-end processing time of a queued job", m.latencyBuckets)

	m.errorsTotal = m.counterVec("errors_total", "Errors by component and kind", "component", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.latencyBuckets, "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Analysis pipeline.

// RecordAnalysisCompleted increments the completed analyses counter.
func RecordAnalysisCompleted() {
	globalManager.analysesCompleted.Inc()
}

// RecordAnalysisFailed counts an aborted analysis at the given stage
// (upload, annotate, persist, ...).
func RecordAnalysisFailed(stage string) {
	globalManager.analysesFailed.WithLabelValues(stage).Inc()
}

// RecordAnalysisDuplicate counts a duplicate analysis request.
func RecordAnalysisDuplicate() {
	globalManager.analysesDuplicate.Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringFallback counts a dimension resolved from its fallback constant.
func RecordScoringFallback(dimension string) {
	globalManager.scoringFallbacks.WithLabelValues(dimension).Inc()
}

// ObserveDimensionScore records a computed score for a dimension.
func ObserveDimensionScore(dimension string, value float64) {
	globalManager.dimensionScore.WithLabelValues(dimension).Observe(value)
}

// RecordProviderLatency records the latency of an upstream annotation call.
func RecordProviderLatency(provider string, latencyMs float64) {
	globalManager.providerLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordProviderError counts an upstream annotation failure.
func RecordProviderError(provider string) {
	globalManager.providerErrors.WithLabelValues(provider).Inc()
}

// RecordMediaCleanupFailure counts a media object left behind after analysis.
func RecordMediaCleanupFailure() {
	globalManager.mediaCleanupFails.Inc()
}

// UpdateStoredRecords sets the number of stored analysis records.
func UpdateStoredRecords(count int) {
	globalManager.storedRecords.Set(float64(count))
}

// RecordCoachRequest counts a coach LLM call.
func RecordCoachRequest(kind, outcome string) {
	globalManager.coachRequests.WithLabelValues(kind, outcome).Inc()
}

// Queue and workers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a job the queue refused (full, closed, cancelled).
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerBusy adjusts the busy worker gauge by delta.
func AddWorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerJobLatency records end-to-end job processing time.
func RecordWorkerJobLatency(latencyMs float64) {
	globalManager.workerJobLatency.Observe(latencyMs)
}

// Errors.

// RecordError counts an error of the given kind raised by component.
func RecordError(component, kind string) {
	globalManager.errorsTotal.WithLabelValues(component, kind).Inc()
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System.

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
