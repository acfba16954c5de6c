package cache

import (
	"time"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	// StatusPending marks an entry whose first fetch is still outstanding.
	StatusPending Status = "pending"

	// StatusFresh marks an entry within its freshness window.
	StatusFresh Status = "fresh"

	// StatusStale marks an entry past its freshness window or explicitly
	// invalidated; it is served while a refresh happens in background.
	StatusStale Status = "stale"

	// StatusError marks an entry whose last fetch failed. A prior value,
	// if any, is preserved for stale-if-error reads.
	StatusError Status = "error"
)

// Entry is one cached query result.
type Entry struct {
	// Key the entry is stored under.
	Key Key

	// Value is the cached payload: an entity, a slice of entities or a
	// derived aggregate. Owned by the store; writers are deep-copied in.
	Value any

	// Err is the classified error of the last failed fetch, nil otherwise.
	Err error

	// FetchedAt is when Value was last written from the origin.
	FetchedAt time.Time

	// StaleAfter is the freshness window relative to FetchedAt.
	StaleAfter time.Duration

	// ExpiresAfter is the garbage-collection threshold relative to
	// FetchedAt. Always materially larger than StaleAfter so background
	// refresh is preferred over refetch-from-empty.
	ExpiresAfter time.Duration

	// Status is the stored lifecycle state. Use EffectiveStatus for the
	// clock-aware state.
	Status Status

	// subscribers is the number of active consumers of this key. Entries
	// with zero subscribers become GC-eligible after ExpiresAfter.
	subscribers int

	// inFlight is set while a fetch for this key is outstanding; used for
	// request de-duplication.
	inFlight bool
}

// EffectiveStatus returns the entry status as of now, demoting a fresh entry
// whose freshness window has elapsed to stale.
func (e *Entry) EffectiveStatus(now time.Time) Status {
	if e.Status == StatusFresh && e.StaleAfter > 0 && now.Sub(e.FetchedAt) > e.StaleAfter {
		return StatusStale
	}
	return e.Status
}

// Expired reports whether the entry is past its GC threshold.
func (e *Entry) Expired(now time.Time) bool {
	if e.ExpiresAfter <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) > e.ExpiresAfter
}

// Subscribers returns the number of active consumers of this entry.
func (e *Entry) Subscribers() int {
	return e.subscribers
}

// InFlight reports whether a fetch for this key is outstanding.
func (e *Entry) InFlight() bool {
	return e.inFlight
}
