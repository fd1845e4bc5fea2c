// Package metrics provides Prometheus metrics for guildq.
// It tracks speech ingestion, queue activity and playback so queue growth
// and synthesis failures are visible per deployment.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "guildq"
)

// Ingest metrics track incoming speech requests.
var (
	// SpeechReceivedTotal counts speech requests received by the API.
	SpeechReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_received_total",
			Help:      "Total number of speech requests received",
		},
	)

	// SpeechRejectedTotal counts requests dropped before publishing.
	SpeechRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_rejected_total",
			Help:      "Total number of speech requests rejected before publishing",
		},
		[]string{"reason"}, // reason: banned, no_session, wrong_channel
	)

	// SpeechPublishedTotal counts requests and skip commands published to the transport.
	SpeechPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_published_total",
			Help:      "Total number of speech requests published to the transport",
		},
	)

	// IngestLatency measures time from API receipt to transport publish.
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_latency_seconds",
			Help:      "Time from speech request receipt to transport publish in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// TransportLatency measures time a request spent in the transport.
	TransportLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transport_latency_seconds",
			Help:      "Time a speech request spent between publish and enqueue in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Queue metrics track the guild queue registry.
var (
	// ItemsEnqueuedTotal counts items added to guild queues.
	ItemsEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_enqueued_total",
			Help:      "Total number of items enqueued across all guilds",
		},
	)

	// ItemsDequeuedTotal counts items removed from guild queues.
	ItemsDequeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_dequeued_total",
			Help:      "Total number of items dequeued across all guilds",
		},
		[]string{"source"}, // source: playback, api
	)

	// QueueClearsTotal counts queue clears.
	QueueClearsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_clears_total",
			Help:      "Total number of guild queue clears",
		},
		[]string{"reason"}, // reason: skip, session_end, api
	)

	// QueueDepth tracks the number of items queued across all guilds.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of items queued across all guilds",
		},
	)

	// QueuedGuilds tracks the number of guilds with a queue entry.
	QueuedGuilds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_guilds",
			Help:      "Current number of guilds with a queue entry",
		},
	)
)

// Playback metrics track the per-guild workers.
var (
	// ActiveWorkers tracks running playback workers.
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_active_workers",
			Help:      "Current number of running per-guild playback workers",
		},
	)

	// ItemsSpokenTotal counts items handed to the speaker.
	ItemsSpokenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_spoken_total",
			Help:      "Total number of items handed to the speaker",
		},
		[]string{"status"}, // status: success, failure
	)

	// SpeakLatency measures time to speak a single item.
	SpeakLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speak_latency_seconds",
			Help:      "Time to synthesize and play a single item in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// ActiveSessions tracks open voice sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of open voice sessions",
		},
	)
)

// Storage metrics track database and cache operations.
var (
	// StorageOperationLatency measures latency of storage operations.
	StorageOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_latency_seconds",
			Help:      "Latency of storage operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"store", "operation"}, // store: postgres, redis; operation: read, write, delete
	)

	// StorageOperationsTotal counts storage operations.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"store", "operation", "status"}, // status: success, failure
	)
)

// ObserveStorage records one storage operation.
func ObserveStorage(store, operation string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	StorageOperationLatency.WithLabelValues(store, operation).Observe(seconds)
	StorageOperationsTotal.WithLabelValues(store, operation, status).Inc()
}
