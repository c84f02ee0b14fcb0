package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages the Prometheus metrics for the matchpulse service. It is
// constructed once per process and handed to the components that record into
// it; there is no package-level instance.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Ingestion
	eventsIngested   prometheus.Counter
	eventsRejected   prometheus.Counter
	eventsDuplicate  prometheus.Counter
	batchesSubmitted prometheus.Counter
	ingestRetries    prometheus.Counter

	// Stream
	streamPublished *prometheus.CounterVec
	streamDepth     *prometheus.GaugeVec

	// Processing
	eventsProcessed prometheus.Counter
	eventsFailed    prometheus.Counter
	stageLatency    *prometheus.HistogramVec

	// Storage
	hotStoreWrites prometheus.Counter
	hotStoreReads  prometheus.Counter
	hotStoreErrors prometheus.Counter
	archiveObjects prometheus.Counter
	archiveBytes   prometheus.Counter

	// Delivery
	activeConnections prometheus.Gauge
	broadcasts        prometheus.Counter
	broadcastFailures prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager backed by its own registry unless one
// is supplied via WithRegistry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchpulse",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Registry returns the registry backing this manager, for the scrape handler.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	// Ingestion
	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Total number of events accepted by the producer",
	})

	m.eventsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Total number of events rejected at validation",
	})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate event IDs detected at ingestion",
	})

	m.batchesSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_submitted_total",
		Help:      "Total number of event batches submitted",
	})

	m.ingestRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_retries_total",
		Help:      "Total number of retried stream appends",
	})

	// Stream
	m.streamPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stream_published_total",
			Help:      "Total number of records published per partition",
		},
		[]string{"partition"},
	)

	m.streamDepth = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stream_depth",
			Help:      "Current number of unconsumed records per partition",
		},
		[]string{"partition"},
	)

	// Processing
	m.eventsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_processed_total",
		Help:      "Total number of events successfully processed",
	})

	m.eventsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_failed_total",
		Help:      "Total number of events that failed processing",
	})

	m.stageLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_latency_milliseconds",
			Help:      "Latency per pipeline stage in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	// Storage
	m.hotStoreWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hot_store_writes_total",
		Help:      "Total number of hot store record writes",
	})

	m.hotStoreReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hot_store_reads_total",
		Help:      "Total number of hot store record reads",
	})

	m.hotStoreErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hot_store_errors_total",
		Help:      "Total number of hot store operation errors",
	})

	m.archiveObjects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_objects_total",
		Help:      "Total number of objects written to the cold archive",
	})

	m.archiveBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_bytes_total",
		Help:      "Total compressed bytes written to the cold archive",
	})

	// Delivery
	m.activeConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_connections",
		Help:      "Current number of registered websocket connections",
	})

	m.broadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_total",
		Help:      "Total number of messages delivered to subscribers",
	})

	m.broadcastFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_failures_total",
		Help:      "Total number of failed deliveries leading to deregistration",
	})

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordEventsIngested adds n accepted events.
func (m *Manager) RecordEventsIngested(n int) {
	m.eventsIngested.Add(float64(n))
}

// RecordEventsRejected adds n validation rejects.
func (m *Manager) RecordEventsRejected(n int) {
	m.eventsRejected.Add(float64(n))
}

// RecordEventDuplicate increments the duplicate events counter.
func (m *Manager) RecordEventDuplicate() {
	m.eventsDuplicate.Inc()
}

// RecordBatchSubmitted increments the batch counter.
func (m *Manager) RecordBatchSubmitted() {
	m.batchesSubmitted.Inc()
}

// RecordIngestRetry increments the retried-append counter.
func (m *Manager) RecordIngestRetry() {
	m.ingestRetries.Inc()
}

// RecordStreamPublished adds n published records for a partition.
func (m *Manager) RecordStreamPublished(partition string, n int) {
	m.streamPublished.WithLabelValues(partition).Add(float64(n))
}

// UpdateStreamDepth sets the unconsumed record count for a partition.
func (m *Manager) UpdateStreamDepth(partition string, depth int) {
	m.streamDepth.WithLabelValues(partition).Set(float64(depth))
}

// RecordEventsProcessed adds n successfully processed events.
func (m *Manager) RecordEventsProcessed(n int) {
	m.eventsProcessed.Add(float64(n))
}

// RecordEventsFailed adds n failed events.
func (m *Manager) RecordEventsFailed(n int) {
	m.eventsFailed.Add(float64(n))
}

// ObserveStageLatency records one latency observation for a pipeline stage.
func (m *Manager) ObserveStageLatency(stage string, latencyMs float64) {
	m.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordHotStoreWrites adds n hot store writes.
func (m *Manager) RecordHotStoreWrites(n int) {
	m.hotStoreWrites.Add(float64(n))
}

// RecordHotStoreReads adds n hot store reads.
func (m *Manager) RecordHotStoreReads(n int) {
	m.hotStoreReads.Add(float64(n))
}

// RecordHotStoreError increments the hot store error counter.
func (m *Manager) RecordHotStoreError() {
	m.hotStoreErrors.Inc()
}

// RecordArchiveObject records one archived object of the given compressed
// size.
func (m *Manager) RecordArchiveObject(bytes int) {
	m.archiveObjects.Inc()
	m.archiveBytes.Add(float64(bytes))
}

// UpdateActiveConnections sets the registered connection count.
func (m *Manager) UpdateActiveConnections(count int) {
	m.activeConnections.Set(float64(count))
}

// RecordBroadcasts adds n delivered messages.
func (m *Manager) RecordBroadcasts(n int) {
	m.broadcasts.Add(float64(n))
}

// RecordBroadcastFailure increments the failed-delivery counter.
func (m *Manager) RecordBroadcastFailure() {
	m.broadcastFailures.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}
