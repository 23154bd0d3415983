// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingest metrics
	EventsIngested  prometheus.Counter
	EventsRejected  prometheus.Counter
	BufferSize      prometheus.Gauge
	EventsEvicted   prometheus.Counter
	HighestSlotSeen prometheus.Gauge

	// Correlation metrics
	CorrelationPasses  prometheus.Counter
	PatternsEmitted    *prometheus.CounterVec // by kind
	CorrelationLatency prometheus.Histogram

	// Detection metrics
	DetectRequests       *prometheus.CounterVec // by outcome
	DetectLatency        prometheus.Histogram
	RecordsUpserted      prometheus.Counter
	PersistRetries       prometheus.Counter

	// Stream metrics
	ConnectedClients  prometheus.Gauge
	MessagesPublished *prometheus.CounterVec // by type
	DroppedClients    prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sandwich_watch"
	}

	return &Metrics{
		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Transaction events accepted by the ingest buffer.",
		}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Transaction events rejected by validation.",
		}),
		BufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_size",
			Help:      "Events currently held in the ingest buffer.",
		}),
		EventsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_evicted_total",
			Help:      "Events removed by the retention manager.",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "highest_slot_seen",
			Help:      "Highest ledger slot observed in the feed.",
		}),
		CorrelationPasses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_passes_total",
			Help:      "Completed correlation passes.",
		}),
		PatternsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patterns_emitted_total",
			Help:      "Suspicious patterns emitted, by kind.",
		}, []string{"kind"}),
		CorrelationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correlation_pass_seconds",
			Help:      "Duration of correlation passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		DetectRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_requests_total",
			Help:      "Synchronous detection requests, by outcome.",
		}, []string{"outcome"}),
		DetectLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_request_seconds",
			Help:      "Duration of synchronous detection requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_records_upserted_total",
			Help:      "Detection records written to storage.",
		}),
		PersistRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_retries_total",
			Help:      "Retried persistence operations after transient failures.",
		}),
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Currently connected stream subscribers.",
		}),
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Messages fanned out to subscribers, by type.",
		}, []string{"type"}),
		DroppedClients: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_clients_dropped_total",
			Help:      "Subscribers dropped after failed deliveries.",
		}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
