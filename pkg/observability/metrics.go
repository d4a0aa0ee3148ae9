// Package observability provides Prometheus metrics for the leaseway
// storage layer and the instrumented capability wrappers that record
// them.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StorageBuckets defines histogram buckets suited for storage backend
// round-trips, ranging from 1ms to 10s.
var StorageBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// StorageOpsTotal counts storage operations by capability, provider,
	// operation, and outcome status ("ok" or "error").
	StorageOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaseway_storage_operations_total",
			Help: "Storage operations",
		},
		[]string{"capability", "provider", "operation", "status"},
	)

	// StorageOpDuration records storage operation duration in seconds.
	StorageOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaseway_storage_operation_duration_seconds",
			Help:    "Storage operation duration",
			Buckets: StorageBuckets,
		},
		[]string{"capability", "provider", "operation"},
	)

	// CacheHitsTotal counts cache reads that found a live entry.
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaseway_cache_hits_total",
			Help: "Cache hits",
		},
		[]string{"provider"},
	)

	// CacheMissesTotal counts cache reads that found nothing.
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaseway_cache_misses_total",
			Help: "Cache misses",
		},
		[]string{"provider"},
	)
)

// MustRegister registers all storage metrics with the given registry.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		StorageOpsTotal,
		StorageOpDuration,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}

// Handler returns an HTTP handler exposing reg in the Prometheus text
// format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
