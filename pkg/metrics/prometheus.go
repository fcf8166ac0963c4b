// Package metrics provides Prometheus metrics for the stress-monitoring service.
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

// Manager holds every Prometheus collector for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingest pipeline
	framesIngested  prometheus.Counter
	framesDuplicate prometheus.Counter
	framesDropped   prometheus.Counter

	// Evaluation pipeline
	evaluationsRecorded   prometheus.Counter
	evaluationErrors      prometheus.Counter
	classifierPredictions prometheus.Counter
	classifierFallbacks   prometheus.Counter
	submitLatency         prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount    prometheus.Gauge
	persistLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Websocket ingest
	wsConnections prometheus.Gauge
	wsMessages    prometheus.Counter
	wsErrors      prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aula",
		subsystem:        "stress",
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

func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations
	auto := promauto.With(m.registry)

	m.framesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_ingested_total",
		Help:      "Emotion frames appended to the frame store.",
	})

	m.framesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_duplicate_total",
		Help:      "Frames acknowledged as duplicates of an already-ingested key.",
	})

	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Frames lost after acknowledgment due to a store append failure.",
	})

	m.evaluationsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_recorded_total",
		Help:      "Stress evaluations committed to the evaluation store.",
	})

	m.evaluationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_errors_total",
		Help:      "Submission requests that failed after validation.",
	})

	m.classifierPredictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classifier_predictions_total",
		Help:      "Facial categories produced by the trained model artifact.",
	})

	m.classifierFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classifier_fallbacks_total",
		Help:      "Facial categories produced by the ratio-threshold fallback.",
	})

	m.submitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submit_latency_ms",
		Help:      "End-to-end evaluation submit latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Frames currently queued for persistence.",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the frame queue.",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Queue fill ratio between 0 and 1.",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Enqueue attempts rejected by backpressure or shutdown.",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Persist workers currently running.",
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_latency_ms",
		Help:      "Frame store append latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint, method and status code.",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request duration in milliseconds.",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_connections",
		Help:      "Open websocket ingest connections.",
	})

	m.wsMessages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_messages_total",
		Help:      "Frame messages received over websocket connections.",
	})

	m.wsErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_errors_total",
		Help:      "Websocket read, decode or validation failures.",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Allocated heap bytes.",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current goroutine count.",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_ms",
		Help:      "Average GC pause time in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
}

// Ingest pipeline.

// RecordFrameIngested increments the ingested frames counter.
func RecordFrameIngested() { globalManager.framesIngested.Inc() }

// RecordFrameDuplicate increments the duplicate frames counter.
func RecordFrameDuplicate() { globalManager.framesDuplicate.Inc() }

// RecordFrameDropped increments the dropped frames counter.
func RecordFrameDropped() { globalManager.framesDropped.Inc() }

// Evaluation pipeline.

// RecordEvaluation increments the recorded evaluations counter.
func RecordEvaluation() { globalManager.evaluationsRecorded.Inc() }

// RecordEvaluationError increments the failed submissions counter.
func RecordEvaluationError() { globalManager.evaluationErrors.Inc() }

// RecordClassifierPrediction increments the model prediction counter.
func RecordClassifierPrediction() { globalManager.classifierPredictions.Inc() }

// RecordClassifierFallback increments the fallback prediction counter.
func RecordClassifierFallback() { globalManager.classifierFallbacks.Inc() }

// RecordSubmitLatency records submit latency in milliseconds.
func RecordSubmitLatency(latencyMs float64) { globalManager.submitLatency.Observe(latencyMs) }

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Workers.

// UpdateWorkerCount sets the running worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordPersistLatency records frame append latency in milliseconds.
func RecordPersistLatency(latencyMs float64) { globalManager.persistLatency.Observe(latencyMs) }

// HTTP.

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Websocket.

// WSConnectionOpened increments the open connection gauge.
func WSConnectionOpened() { globalManager.wsConnections.Inc() }

// WSConnectionClosed decrements the open connection gauge.
func WSConnectionClosed() { globalManager.wsConnections.Dec() }

// RecordWSMessage increments the websocket message counter.
func RecordWSMessage() { globalManager.wsMessages.Inc() }

// RecordWSError increments the websocket error counter.
func RecordWSError() { globalManager.wsErrors.Inc() }

// System.

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }
