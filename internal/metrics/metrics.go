package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bandit service.
type Metrics struct {
	// Update metrics
	Updates       prometheus.Counter
	UpdateErrors  prometheus.Counter
	SpendRecorded prometheus.Counter

	// Draw metrics
	Draws        prometheus.Counter
	DrawLatency  prometheus.Histogram
	ItemsRanked  prometheus.Counter
	ItemsSkipped prometheus.Counter
	SnapshotRows prometheus.Gauge

	// Ingestion metrics
	EventsIngested prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Updates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of accepted stat updates",
		}),
		UpdateErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_errors_total",
			Help:      "Total number of rejected or failed stat updates",
		}),
		SpendRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spend_recorded_total",
			Help:      "Total daily spend recorded across item groups",
		}),
		Draws: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Total number of draw operations",
		}),
		DrawLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "draw_latency_seconds",
			Help:      "Draw latency including snapshot reload",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsRanked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_ranked_total",
			Help:      "Total number of items returned across draws",
		}),
		ItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Total number of zero-signal items excluded from draws",
		}),
		SnapshotRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Row count of the most recent draw snapshot",
		}),
		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Total number of raw tracking events received",
		}),
		RateLimitHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of rate-limited requests",
		}, []string{"path"}),
	}
}

// RecordRateLimitHit increments the rate-limit counter for a path.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
