// Package metrics holds the Prometheus collectors shared by the fetch and
// build pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t5index_provider_requests_total",
		Help: "Data source requests by source and status.",
	}, []string{"source", "status"})

	SeriesCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t5index_series_cache_lookups_total",
		Help: "Series cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	IndexBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t5index_builds_total",
		Help: "Index builds by source and outcome.",
	}, []string{"source", "outcome"})

	IndexBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "t5index_build_duration_seconds",
		Help:    "End-to-end index build latency including fetches.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})
)
