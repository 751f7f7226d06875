package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reco",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reco",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	TMDBRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reco",
		Name:      "tmdb_requests_total",
		Help:      "Total upstream TMDB requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	TMDBRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reco",
		Name:      "tmdb_request_duration_seconds",
		Help:      "Upstream TMDB request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	TMDBCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reco",
		Name:      "tmdb_cache_hits_total",
		Help:      "Total TMDB response cache hits.",
	})

	TMDBCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reco",
		Name:      "tmdb_cache_misses_total",
		Help:      "Total TMDB response cache misses.",
	})

	RecommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reco",
		Name:      "recommendations_total",
		Help:      "Recommendation requests by outcome (ok, no_results, no_session, validation, error).",
	}, []string{"outcome"})

	ProviderScanDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reco",
		Name:      "provider_scan_depth",
		Help:      "Number of alternate candidates probed during provider matching.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TMDBRequestsTotal,
		TMDBRequestDuration,
		TMDBCacheHitsTotal,
		TMDBCacheMissesTotal,
		RecommendationsTotal,
		ProviderScanDepth,
	)
}
