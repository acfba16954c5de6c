package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// storeHits tracks cache reads that found an entry
	storeHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Total number of cache reads that found an entry",
		},
	)

	// storeMisses tracks cache reads that found nothing
	storeMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Total number of cache reads that found no entry",
		},
	)

	// storeWrites tracks successful value writes
	storeWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_writes_total",
			Help: "Total number of cache value writes",
		},
	)

	// storeInvalidations tracks entries marked stale
	storeInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_invalidations_total",
			Help: "Total number of cache entries marked stale",
		},
	)

	// storeEvictions tracks GC-swept entries
	storeEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_evictions_total",
			Help: "Total number of cache entries deleted by GC sweeps",
		},
	)

	// storeEntries tracks the current entry count
	storeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cache_entries",
			Help: "Current number of cache entries",
		},
	)
)
