// Package query orchestrates cache reads: request de-duplication,
// stale-while-revalidate and stale-if-error on top of the cache store.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/velora-labs/storefront-cache/pkg/cache"
)

var (
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_query_total",
		Help: "Total coordinator reads by resulting status",
	}, []string{"status"})

	queryDedupTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_query_dedup_total",
		Help: "Total reads that attached to an already in-flight fetch",
	})
)

// Status describes the state of a read result.
type Status string

const (
	// StatusLoading means no cached value exists yet and a fetch is
	// outstanding.
	StatusLoading Status = "loading"

	// StatusFresh means the value came straight from a fresh cache entry.
	StatusFresh Status = "fresh"

	// StatusStaleRevalidating means a stale value was served while a
	// background refresh runs.
	StatusStaleRevalidating Status = "stale-revalidating"

	// StatusError means the last fetch failed. Value still holds the last
	// good data when any exists.
	StatusError Status = "error"
)

// Fetcher loads the value for a key from the origin.
type Fetcher func(ctx context.Context) (any, error)

// Result is the outcome of a coordinated read, mirroring the
// {data, isLoading, isError, error} contract of the UI binding layer.
type Result struct {
	Value  any
	Status Status
	Err    error
}

// Coordinator serializes fetches per key so that any number of concurrent
// readers of one key cause at most one network call.
type Coordinator struct {
	store  *cache.Store
	logger zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one shared in-flight fetch. Joiners wait on done; the result is
// also written to the cache regardless of whether anyone is still waiting.
type flight struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a query coordinator over store.
func New(store *cache.Store) *Coordinator {
	return &Coordinator{
		store:   store,
		flights: make(map[string]*flight),
		logger:  log.With().Str("component", "query-coordinator").Logger(),
	}
}

// Store exposes the underlying cache store for subscriptions.
func (c *Coordinator) Store() *cache.Store {
	return c.store
}

// Query performs a coordinated read of key.
//
// A fresh entry is returned without any network call. A stale entry is
// returned immediately while at most one background refresh is triggered.
// A miss blocks until the (possibly shared) fetch resolves. A failed entry
// with prior data is served stale with the error attached while a background
// refresh runs, so the error state is transient, never terminal.
func (c *Coordinator) Query(ctx context.Context, key cache.Key, fetch Fetcher) Result {
	entry, ok := c.store.Read(key)
	if ok {
		switch entry.EffectiveStatus(time.Now()) {
		case cache.StatusFresh:
			queryTotal.WithLabelValues(string(StatusFresh)).Inc()
			return Result{Value: entry.Value, Status: StatusFresh}

		case cache.StatusStale:
			c.ensureFlight(ctx, key, fetch)
			queryTotal.WithLabelValues(string(StatusStaleRevalidating)).Inc()
			return Result{Value: entry.Value, Status: StatusStaleRevalidating}

		case cache.StatusError:
			if entry.Value != nil {
				// stale-if-error: serve the last good value plus the error
				// and refresh in the background, so a recovered origin
				// heals the entry on the next read
				c.ensureFlight(ctx, key, fetch)
				queryTotal.WithLabelValues(string(StatusError)).Inc()
				return Result{Value: entry.Value, Status: StatusError, Err: entry.Err}
			}
			// no prior data; fall through and fetch again
		}
	}

	return c.await(ctx, key, fetch)
}

// Refetch forces a refresh of key regardless of freshness and waits for the
// result. Concurrent refetches of the same key share one fetch.
func (c *Coordinator) Refetch(ctx context.Context, key cache.Key, fetch Fetcher) Result {
	return c.await(ctx, key, fetch)
}

// Revalidate triggers a background refresh of key without waiting, unless
// one is already in flight.
func (c *Coordinator) Revalidate(ctx context.Context, key cache.Key, fetch Fetcher) {
	c.ensureFlight(ctx, key, fetch)
}

// await joins (or starts) the flight for key and blocks until it settles or
// ctx is cancelled. Cancellation abandons the wait only; the fetch itself
// completes and its result is written to the shared cache.
func (c *Coordinator) await(ctx context.Context, key cache.Key, fetch Fetcher) Result {
	f := c.ensureFlight(ctx, key, fetch)

	select {
	case <-ctx.Done():
		queryTotal.WithLabelValues(string(StatusLoading)).Inc()
		return Result{Status: StatusLoading, Err: ctx.Err()}
	case <-f.done:
	}

	if f.err != nil {
		if entry, ok := c.store.Read(key); ok && entry.Value != nil {
			queryTotal.WithLabelValues(string(StatusError)).Inc()
			return Result{Value: entry.Value, Status: StatusError, Err: f.err}
		}
		queryTotal.WithLabelValues(string(StatusError)).Inc()
		return Result{Status: StatusError, Err: f.err}
	}

	queryTotal.WithLabelValues(string(StatusFresh)).Inc()
	return Result{Value: f.value, Status: StatusFresh}
}

// ensureFlight returns the in-flight fetch for key, starting one when none
// exists. The flights map is the de-duplication authority.
func (c *Coordinator) ensureFlight(ctx context.Context, key cache.Key, fetch Fetcher) *flight {
	k := key.String()

	c.mu.Lock()
	if f, ok := c.flights[k]; ok {
		c.mu.Unlock()
		queryDedupTotal.Inc()
		return f
	}
	f := &flight{done: make(chan struct{})}
	c.flights[k] = f
	c.mu.Unlock()

	c.store.BeginFetch(key, cache.PolicyFor(key.EntityType))

	// The fetch outlives its initiator: unsubscribing or cancelling never
	// aborts it, because the cache is shared state.
	go c.run(context.WithoutCancel(ctx), f, key, fetch)

	return f
}

func (c *Coordinator) run(ctx context.Context, f *flight, key cache.Key, fetch Fetcher) {
	value, err := fetch(ctx)
	if err != nil {
		c.logger.Warn().
			Str("key", key.String()).
			Err(err).
			Msg("Fetch failed")
		c.store.WriteError(key, err)
		f.err = err
	} else {
		c.store.Write(key, value, cache.PolicyFor(key.EntityType))
		// hand joiners the store-owned value so repeated reads within the
		// freshness window observe the identical reference
		if entry, ok := c.store.Read(key); ok {
			f.value = entry.Value
		} else {
			f.value = value
		}
	}

	c.mu.Lock()
	delete(c.flights, key.String())
	c.mu.Unlock()
	close(f.done)
}
