// Package metrics provides Prometheus metrics for the hiscores service.
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

// latencyBucketsMs covers store calls and context builds in milliseconds.
var latencyBucketsMs = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Manager manages all Prometheus metrics for the hiscores service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking engine
	contextBuilds        prometheus.Counter
	contextBuildDuration prometheus.Histogram
	contextCacheHits     prometheus.Counter
	contextCacheMisses   prometheus.Counter
	achievementUnlocks   prometheus.Counter
	achievementPrunes    prometheus.Counter
	populationSize       prometheus.Gauge

	// Update job and history
	jobRuns           *prometheus.CounterVec
	jobBatches        prometheus.Counter
	jobPlayerFailures prometheus.Counter
	jobDuration       prometheus.Histogram
	jobLastRunUnix    prometheus.Gauge
	snapshotsRecorded prometheus.Counter
	snapshotsPruned   prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeOpLatency *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "hiscores",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.contextBuilds = m.counter("context_builds_total", "Number of achievement contexts built from a population scan")
	m.contextBuildDuration = m.histogram("context_build_duration_milliseconds", "Time to build an achievement context", latencyBucketsMs)
	m.contextCacheHits = m.counter("context_cache_hits_total", "Context cache hits")
	m.contextCacheMisses = m.counter("context_cache_misses_total", "Context cache misses, including stale signatures")
	m.achievementUnlocks = m.counter("achievement_unlocks_total", "Achievements newly unlocked")
	m.achievementPrunes = m.counter("achievement_prunes_total", "Redundant family achievements removed")
	m.populationSize = m.gauge("population_size", "Players in the last scanned population")

	m.jobRuns = m.counterVec("job_runs_total", "Update job runs by outcome", "status")
	m.jobBatches = m.counter("job_batches_total", "Update job batches processed")
	m.jobPlayerFailures = m.counter("job_player_failures_total", "Players skipped by the update job after an error")
	m.jobDuration = m.histogram("job_duration_milliseconds", "Update job duration",
		[]float64{100, 500, 1000, 5000, 15000, 60000, 300000})
	m.jobLastRunUnix = m.gauge("job_last_run_unix", "Unix time of the last finished update job")
	m.snapshotsRecorded = m.counter("history_snapshots_recorded_total", "Leaderboard snapshots written")
	m.snapshotsPruned = m.counter("history_snapshots_pruned_total", "Leaderboard snapshots deleted after retention")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration in seconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.storeOpLatency = m.histogramVec("store_operation_duration_milliseconds", "Key-value store operation latency",
		latencyBucketsMs, "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Key-value store operation errors", "backend", "op")

	m.queueSize = m.gauge("queue_size", "Tasks waiting in the update queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the update queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueueRate = m.counter("queue_enqueued_total", "Tasks enqueued")
	m.queueDequeueRate = m.counter("queue_dequeued_total", "Tasks dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Tasks rejected by a full or closed queue")

	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a task")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-task processing latency", latencyBucketsMs)
	m.workerErrors = m.counter("worker_errors_total", "Tasks that returned an error")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// Ranking engine.

// RecordContextBuild records one context build.
func RecordContextBuild(durationMs float64) {
	globalManager.contextBuilds.Inc()
	globalManager.contextBuildDuration.Observe(durationMs)
}

// RecordContextCache records a cache lookup.
func RecordContextCache(hit bool) {
	if hit {
		globalManager.contextCacheHits.Inc()
		return
	}
	globalManager.contextCacheMisses.Inc()
}

// RecordAchievementUnlocks adds newly unlocked achievements.
func RecordAchievementUnlocks(n int) {
	if n > 0 {
		globalManager.achievementUnlocks.Add(float64(n))
	}
}

// RecordAchievementPrunes adds pruned achievements.
func RecordAchievementPrunes(n int) {
	if n > 0 {
		globalManager.achievementPrunes.Add(float64(n))
	}
}

// UpdatePopulationSize sets the population gauge.
func UpdatePopulationSize(n int) {
	globalManager.populationSize.Set(float64(n))
}

// Update job and history.

// RecordJobRun records a finished job with its outcome.
func RecordJobRun(status string, durationMs float64) {
	globalManager.jobRuns.WithLabelValues(status).Inc()
	globalManager.jobDuration.Observe(durationMs)
	globalManager.jobLastRunUnix.Set(float64(time.Now().Unix()))
}

// RecordJobBatch records one processed batch.
func RecordJobBatch() {
	globalManager.jobBatches.Inc()
}

// RecordJobPlayerFailure records a skipped player.
func RecordJobPlayerFailure() {
	globalManager.jobPlayerFailures.Inc()
}

// RecordSnapshot records a written snapshot and how many expired ones were
// deleted.
func RecordSnapshot(pruned int) {
	globalManager.snapshotsRecorded.Inc()
	if pruned > 0 {
		globalManager.snapshotsPruned.Add(float64(pruned))
	}
}

// HTTP.

// RecordHTTPRequest counts a request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Store.

// RecordStoreOperation observes one store call and counts it as an error
// when failed is set.
func RecordStoreOperation(backend, op string, latencyMs float64, failed bool) {
	globalManager.storeOpLatency.WithLabelValues(backend, op).Observe(latencyMs)
	if failed {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// Queue.

// UpdateQueueSize sets the queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets size/capacity.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an accepted task.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a consumed task.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a rejected task.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker.

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes one task.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed task.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Errors.

// RecordErrorByComponent counts an error raised in component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint counts an error returned by an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets heap usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes a GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns the global manager's sampling interval.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}
