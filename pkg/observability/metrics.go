// Package observability provides Prometheus metrics for the argus provider
// stack and the record sink that feeds session tracking after each call.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// DiscoveryBuckets covers model-listing calls, which are bounded by the 15s
// fetch timeout.
var DiscoveryBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15}

var (
	// ProviderRequestsTotal counts chat and streaming calls by outcome.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_provider_requests_total",
			Help: "Provider chat requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records full call duration in seconds, including
	// stream consumption.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_provider_latency_seconds",
			Help:    "Provider call latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ActiveStreams tracks the number of in-flight streaming calls.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "argus_streams_active",
			Help: "Active streaming calls",
		},
	)

	// DiscoveryFetchesTotal counts model-listing fetches by outcome.
	DiscoveryFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_discovery_fetches_total",
			Help: "Model discovery fetches",
		},
		[]string{"provider", "outcome"},
	)

	// DiscoveryFetchDuration records listing call duration in seconds.
	DiscoveryFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argus_discovery_fetch_duration_seconds",
			Help:    "Model discovery fetch duration",
			Buckets: DiscoveryBuckets,
		},
		[]string{"provider"},
	)

	// DiscoveryCacheHitsTotal counts listing calls served from cache.
	DiscoveryCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_discovery_cache_hits_total",
			Help: "Model discovery cache hits",
		},
		[]string{"provider"},
	)

	// HealthChecksTotal counts health probes by result.
	HealthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_health_checks_total",
			Help: "Provider health probes",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ActiveStreams,
		DiscoveryFetchesTotal,
		DiscoveryFetchDuration,
		DiscoveryCacheHitsTotal,
		HealthChecksTotal,
	)
}

// RecordDiscoveryFetch records one network listing fetch and its duration.
func RecordDiscoveryFetch(provider string, ok bool, duration time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	DiscoveryFetchesTotal.WithLabelValues(provider, outcome).Inc()
	DiscoveryFetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDiscoveryCacheHit records one listing call answered from cache.
func RecordDiscoveryCacheHit(provider string) {
	DiscoveryCacheHitsTotal.WithLabelValues(provider).Inc()
}

// RecordHealthCheck records one health probe result.
func RecordHealthCheck(provider string, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecksTotal.WithLabelValues(provider, status).Inc()
}
