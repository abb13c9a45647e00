// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finstat_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// ComputeDuration observes how long a full portfolio computation takes.
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finstat_portfolio_compute_duration_seconds",
		Help:    "Duration of a full ledger-to-positions computation.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})

	// ComputedTrades tracks the ledger size seen by the last computations.
	ComputedTrades = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finstat_portfolio_computed_trades",
		Help:    "Number of ledger entries per portfolio computation.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})

	// SnapshotCache counts portfolio snapshot cache hits and misses.
	SnapshotCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finstat_snapshot_cache_requests_total",
		Help: "Portfolio snapshot cache lookups by result.",
	}, []string{"result"})
)
