package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_fetch_requests_total",
			Help: "Total number of content API fetch attempts",
		},
		[]string{"outcome"}, // success, error, timeout
	)

	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_fetch_retries_total",
			Help: "Total number of fetch retry attempts",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_fetch_duration_seconds",
			Help:    "Duration of content API fetch attempts",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_cache_evictions_total",
			Help: "Total number of entries removed by eviction or purge",
		},
		[]string{"tier"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "news_cache_entries",
			Help: "Current number of entries per cache tier",
		},
		[]string{"tier"},
	)

	ConnectionQuality = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "news_connection_quality",
			Help: "Current connection quality classification (0=poor, 1=normal, 2=good)",
		},
	)
)

// RecordFetch records one completed fetch attempt.
func RecordFetch(outcome string, seconds float64) {
	FetchRequests.WithLabelValues(outcome).Inc()
	FetchDuration.Observe(seconds)
}

// RecordRetry records a retry attempt.
func RecordRetry() {
	FetchRetries.Inc()
}

// RecordCacheHit records a cache hit for a tier.
func RecordCacheHit(tier string) {
	CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a cache miss for a tier.
func RecordCacheMiss(tier string) {
	CacheMisses.WithLabelValues(tier).Inc()
}

// RecordEvictions records entries removed from a tier.
func RecordEvictions(tier string, count int) {
	CacheEvictions.WithLabelValues(tier).Add(float64(count))
}

// UpdateCacheEntries updates the per-tier entry count gauge.
func UpdateCacheEntries(tier string, count int) {
	CacheEntries.WithLabelValues(tier).Set(float64(count))
}

// UpdateConnectionQuality updates the quality gauge.
func UpdateConnectionQuality(quality string) {
	switch quality {
	case "good":
		ConnectionQuality.Set(2)
	case "normal":
		ConnectionQuality.Set(1)
	default:
		ConnectionQuality.Set(0)
	}
}
