// Package metrics provides Prometheus metrics for the Vault Tracker application.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Upstream catalog API Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_upstream_requests_total",
			Help: "Total upstream catalog API requests by HTTP status",
		},
		[]string{"source", "status"}, // source: "rebrickable", "brickset", "bricklink"; status: HTTP code or "error"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_upstream_request_duration_seconds",
			Help:    "Upstream catalog API call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_upstream_errors_total",
			Help: "Upstream catalog API failures by error class",
		},
		[]string{"source", "class"}, // class: "timeout", "network", "rate_limited", "not_found", "client_error", "server_error", "api_status", "parse"
	)

	BrickLinkQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_bricklink_quota_remaining",
			Help: "Remaining BrickLink API requests for today",
		},
	)

	// Lookup Metrics
	LegoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_lego_lookups_total",
			Help: "LEGO set lookups by result",
		},
		[]string{"result"}, // "found", "not_found"
	)

	LegoPriceSourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_lego_price_source_total",
			Help: "Resolved LEGO set prices by source",
		},
		[]string{"source"}, // "bricklink", "estimate"
	)

	LegoLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_lego_lookup_duration_seconds",
			Help:    "End-to-end LEGO set lookup latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	LookupCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_lookup_cache_total",
			Help: "Lookup cache hits and misses",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Price Alert Worker Metrics
	PriceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_price_checks_total",
			Help: "Total number of item price checks by outcome",
		},
		[]string{"status"}, // "ALERT", "OK", "NO_PRICE", "NO_BASE"
	)

	PriceChecksToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_price_checks_today",
			Help: "Number of items price-checked today (resets at midnight)",
		},
	)

	PriceCheckRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_price_check_run_duration_seconds",
			Help:    "Time taken to process a price alert run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Collection Metrics
	CollectionItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_collection_items_total",
			Help: "Total number of items across all collections",
		},
	)

	CollectionValueTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_collection_value_total",
			Help: "Total current value of all items (mixed currencies)",
		},
	)

	CollectionItemsByType = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_collection_items_by_type",
			Help: "Number of items by collection type",
		},
		[]string{"type"},
	)
)

// UpdateCollectionMetrics recomputes the collection gauges from the database
func UpdateCollectionMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var totals struct {
		Count int64
		Value float64
	}
	db.Table("items").Select("COUNT(*) as count, COALESCE(SUM(current_value), 0) as value").Scan(&totals)
	CollectionItemsTotal.Set(float64(totals.Count))
	CollectionValueTotal.Set(totals.Value)

	var byType []struct {
		Type  string
		Count int64
	}
	db.Table("items").
		Select("collections.type as type, COUNT(*) as count").
		Joins("JOIN collections ON collections.id = items.collection_id").
		Group("collections.type").
		Scan(&byType)
	for _, t := range byType {
		CollectionItemsByType.WithLabelValues(t.Type).Set(float64(t.Count))
	}
}
