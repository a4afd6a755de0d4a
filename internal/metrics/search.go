package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Completed searches by search type",
		},
		[]string{"search_type"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"search_type"},
	)

	LexicalFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lexical_fallback_total",
			Help:      "Lexical searches answered by the substring fallback",
		},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Searches that lost the vector mode",
		},
		[]string{"reason"}, // "embedding" / "vector"
	)

	HydrationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydration_total",
			Help:      "Record hydration outcomes",
		},
		[]string{"result"}, // "ok" / "not_found" / "decompression_failed" / "error"
	)

	RecordCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_cache_total",
			Help:      "Decoded record cache hits and misses",
		},
		[]string{"result"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and hydration metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(LexicalFallbackTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(HydrationTotal)
	prometheus.MustRegister(RecordCacheTotal)
	searchMetricsRegistered = true
}
