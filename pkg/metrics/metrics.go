// Package metrics provides the centralized Prometheus registry reference for
// the storefront cache layer. All metrics are defined in their respective
// packages (cache, api, query, mutation) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the cache layer.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Store Metrics (pkg/cache):
//   - storefront_cache_hits_total (Counter): Reads that found an entry
//   - storefront_cache_misses_total (Counter): Reads that found nothing
//   - storefront_cache_writes_total (Counter): Value writes
//   - storefront_cache_invalidations_total (Counter): Entries marked stale
//   - storefront_cache_evictions_total (Counter): Entries deleted by GC
//   - storefront_cache_entries (Gauge): Current entry count
//
// Gateway Metrics (pkg/api):
//   - storefront_api_requests_total{resource, status} (Counter)
//   - storefront_api_request_duration_seconds{resource} (Histogram)
//   - storefront_api_errors_total{kind} (Counter)
//   - storefront_api_retries_total{kind} (Counter)
//   - storefront_api_retry_exhausted_total{kind} (Counter)
//
// Coordinator Metrics (pkg/query, pkg/mutation):
//   - storefront_query_total{status} (Counter): Reads by resulting status
//   - storefront_query_dedup_total (Counter): Reads attached to an
//     in-flight fetch instead of issuing their own
//   - storefront_mutations_total{entity_type, operation, outcome} (Counter)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(storefront_cache_hits_total[5m])) /
//   (sum(rate(storefront_cache_hits_total[5m])) + sum(rate(storefront_cache_misses_total[5m])))
//
//   # Mutation Failure Rate
//   sum(rate(storefront_mutations_total{outcome="failed"}[5m])) /
//   sum(rate(storefront_mutations_total[5m]))
//
//   # P95 API Latency
//   histogram_quantile(0.95, rate(storefront_api_request_duration_seconds_bucket[5m]))
//
//   # De-duplication Effectiveness
//   rate(storefront_query_dedup_total[5m]) / rate(storefront_query_total[5m])
