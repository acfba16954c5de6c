// Package cache provides the in-memory store of storefront query results:
// hierarchical cache keys, entries with per-entity-type freshness policies,
// prefix invalidation, subscriber notification and garbage collection.
//
// # Keys
//
// Keys are ordered scope tuples: entity type, view, argument, filters.
// Filter maps are serialized with sorted keys, so two logically equivalent
// queries always produce the same key string:
//
//	cache.ListKey("products", map[string]string{"categoryId": "c1"})
//	// store:products:list:categoryId=c1
//
// Keys form a prefix tree. Invalidating cache.TypePrefix("products") marks
// every product query stale at once.
//
// # Entries
//
// An entry moves through pending -> fresh -> stale and is served while
// stale (stale-while-revalidate). Entries past ExpiresAfter with no
// subscribers are deleted by GCSweep. A failed refresh keeps the prior
// value and only flips the status to error.
//
// # Ownership and notification
//
// Write deep-copies the caller's value; values returned by Read must be
// treated as immutable. Subscriber callbacks run synchronously on the
// mutating goroutine, in registration order, once per change.
//
// The store is deliberately origin-agnostic: the query and mutation
// coordinators are its only writers.
package cache
