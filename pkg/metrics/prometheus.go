// Package metrics provides Prometheus metrics for the squid trend service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingest boundary
	messagesAccepted prometheus.Counter
	messagesRejected prometheus.Counter
	eventsScored     prometheus.Counter

	// Scorer state
	termsTracked prometheus.Gauge
	termsEvicted prometheus.Counter
	sweepDuration prometheus.Histogram

	// Dedup limiter
	dedupeApproxConversions prometheus.Counter
	dedupeRotations         prometheus.Counter

	// Leaderboard reconciliation
	reconcileDuration prometheus.Histogram
	reconcileCount    prometheus.Counter
	reconcileLastUnix prometheus.Gauge
	leaderboardSize   prometheus.Gauge

	// Snapshot persistence
	snapshotPersistDuration prometheus.Histogram
	snapshotFailures        prometheus.Counter
	snapshotLastUnix        prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Workers
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors across components
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squid",
		subsystem:        "trends",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.messagesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "messages_accepted_total",
		Help: "Messages accepted at the ingest boundary",
	})
	m.messagesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "messages_rejected_total",
		Help: "Messages rejected as malformed at the ingest boundary",
	})
	m.eventsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_scored_total",
		Help: "Occurrence events applied to the scorer",
	})

	m.termsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "terms_tracked",
		Help: "Terms currently tracked by the scorer",
	})
	m.termsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "terms_evicted_total",
		Help: "Terms removed because their decayed score fell below the floor",
	})
	m.sweepDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "sweep_duration_ms",
		Help:    "Duration of eviction sweeps in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.dedupeApproxConversions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "dedupe_approx_conversions_total",
		Help: "Per-term dedup states degraded from exact to approximate",
	})
	m.dedupeRotations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "dedupe_rotations_total",
		Help: "Per-term dedup windows rotated",
	})

	m.reconcileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "reconcile_duration_ms",
		Help:    "Duration of leaderboard reconciliation passes in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.reconcileCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_total",
		Help: "Leaderboard reconciliation passes",
	})
	m.reconcileLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_last_timestamp_seconds",
		Help: "Unix time of the last reconciliation pass",
	})
	m.leaderboardSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "leaderboard_size",
		Help: "Entries currently held by the leaderboard",
	})

	m.snapshotPersistDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "snapshot_persist_duration_ms",
		Help:    "Duration of snapshot persistence in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.snapshotFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshot_failures_total",
		Help: "Snapshot persist/restore failures",
	})
	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshot_last_timestamp_seconds",
		Help: "Unix time of the last successful snapshot",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Occurrence events currently queued",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured queue capacity",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_utilization",
		Help: "Queue fill ratio between 0 and 1",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_total",
		Help: "Events enqueued",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_dequeue_total",
		Help: "Events dequeued",
	})
	m.queueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Enqueue attempts dropped due to backpressure or shutdown",
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_active",
		Help: "Active ingest workers",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "worker_processing_latency_ms",
		Help:    "Per-event worker processing latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_errors_total",
		Help: "Worker processing errors",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds by endpoint",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_total",
		Help: "Errors by component and kind",
	}, []string{"component", "kind"})
}

// Ingest boundary.

// RecordMessageAccepted increments the accepted message counter.
func RecordMessageAccepted() { globalManager.messagesAccepted.Inc() }

// RecordMessageRejected increments the rejected message counter.
func RecordMessageRejected() { globalManager.messagesRejected.Inc() }

// RecordEventScored increments the scored occurrence counter.
func RecordEventScored() { globalManager.eventsScored.Inc() }

// Scorer state.

// UpdateTermsTracked sets the number of tracked terms.
func UpdateTermsTracked(count int) { globalManager.termsTracked.Set(float64(count)) }

// RecordTermsEvicted adds to the eviction counter.
func RecordTermsEvicted(count int) { globalManager.termsEvicted.Add(float64(count)) }

// RecordSweepDuration records an eviction sweep duration.
func RecordSweepDuration(ms float64) { globalManager.sweepDuration.Observe(ms) }

// Dedup limiter.

// RecordDedupeApproxConversion increments the exact-to-approximate conversion counter.
func RecordDedupeApproxConversion() { globalManager.dedupeApproxConversions.Inc() }

// RecordDedupeRotation increments the window rotation counter.
func RecordDedupeRotation() { globalManager.dedupeRotations.Inc() }

// Leaderboard.

// RecordReconcileDuration records a reconciliation pass duration.
func RecordReconcileDuration(ms float64) { globalManager.reconcileDuration.Observe(ms) }

// IncrementReconcileCount increments the reconciliation pass counter.
func IncrementReconcileCount() { globalManager.reconcileCount.Inc() }

// UpdateReconcileLastUnix sets the time of the last reconciliation pass.
func UpdateReconcileLastUnix(ts float64) { globalManager.reconcileLastUnix.Set(ts) }

// UpdateLeaderboardSize sets the number of leaderboard entries.
func UpdateLeaderboardSize(n int) { globalManager.leaderboardSize.Set(float64(n)) }

// Snapshots.

// RecordSnapshotPersistDuration records a snapshot persist duration.
func RecordSnapshotPersistDuration(ms float64) { globalManager.snapshotPersistDuration.Observe(ms) }

// RecordSnapshotFailure increments the snapshot failure counter.
func RecordSnapshotFailure() { globalManager.snapshotFailures.Inc() }

// UpdateSnapshotLastUnix sets the time of the last successful snapshot.
func UpdateSnapshotLastUnix(ts float64) { globalManager.snapshotLastUnix.Set(ts) }

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(u float64) { globalManager.queueUtilization.Set(u) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrs.Inc() }

// Workers.

// UpdateWorkerActive sets the number of active workers.
func UpdateWorkerActive(count int) { globalManager.workerActive.Set(float64(count)) }

// RecordWorkerProcessingLatency records per-event processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP.

// RecordHTTPRequest counts a request by endpoint, method and status code.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records request duration for an endpoint.
func RecordHTTPRequestDuration(endpoint string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
}

// Errors.

// RecordErrorByComponent counts an error with component and kind labels.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
