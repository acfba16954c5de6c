package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventOp identifies what kind of store change a notification reports.
type EventOp string

const (
	// OpWrite reports a value or error written for a key.
	OpWrite EventOp = "write"

	// OpInvalidate reports a key marked stale.
	OpInvalidate EventOp = "invalidate"

	// OpRemove reports a key deleted from the store.
	OpRemove EventOp = "remove"
)

// Event is delivered to subscribers of a key on every change to that key.
type Event struct {
	Key   Key
	Op    EventOp
	Entry Entry
}

// Listener receives change events for a subscribed key.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Store is the in-memory cache of query results and entity snapshots.
//
// All mutations happen under one mutex; subscriber callbacks for a mutation
// are invoked in registration order on the mutating goroutine, after the
// mutex is released but before the mutating call returns, so every
// subscriber observes one consistent change per call.
//
// Stored values are owned by the store: Write deep-copies the caller's
// value, and values handed out by Read must be treated as immutable.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	subs    map[string][]subscription
	nextSub int
	now     func() time.Time
	logger  zerolog.Logger
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		subs:    make(map[string][]subscription),
		now:     time.Now,
		logger:  log.With().Str("component", "cache-store").Logger(),
	}
}

// Read returns a snapshot of the entry for key, or ok=false on miss.
// The snapshot's Value is the stored reference, not a copy.
func (s *Store) Read(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		storeMisses.Inc()
		return Entry{}, false
	}
	storeHits.Inc()
	return *e, true
}

// Write stores value under key with the given freshness policy, marking the
// entry fresh and clearing any error or in-flight flag. The value is
// deep-copied; the caller's object is never retained.
func (s *Store) Write(key Key, value any, p Policy) {
	k := key.String()

	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		e = &Entry{Key: key}
		s.entries[k] = e
	}
	e.Value = CloneValue(value)
	e.Err = nil
	e.FetchedAt = s.now()
	e.StaleAfter = p.StaleAfter
	e.ExpiresAfter = p.ExpiresAfter
	e.Status = StatusFresh
	e.inFlight = false
	e.subscribers = len(s.subs[k])

	storeWrites.Inc()
	storeEntries.Set(float64(len(s.entries)))

	event := Event{Key: key, Op: OpWrite, Entry: *e}
	listeners := s.listenersLocked(k)
	s.mu.Unlock()

	dispatch(listeners, event)
}

// WriteError records a failed fetch for key. Any prior value is preserved so
// readers can serve stale data over a hard failure; an entry that never held
// data gets status error with a nil value.
func (s *Store) WriteError(key Key, err error) {
	k := key.String()

	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		p := PolicyFor(key.EntityType)
		e = &Entry{
			Key:          key,
			FetchedAt:    s.now(),
			StaleAfter:   p.StaleAfter,
			ExpiresAfter: p.ExpiresAfter,
		}
		s.entries[k] = e
	}
	e.Status = StatusError
	e.Err = err
	e.inFlight = false
	e.subscribers = len(s.subs[k])

	storeEntries.Set(float64(len(s.entries)))

	event := Event{Key: key, Op: OpWrite, Entry: *e}
	listeners := s.listenersLocked(k)
	s.mu.Unlock()

	s.logger.Debug().Str("key", k).Err(err).Msg("Fetch error recorded")
	dispatch(listeners, event)
}

// BeginFetch marks a fetch for key as outstanding, creating a pending entry
// if none exists. Returns false when a fetch is already in flight, which is
// how concurrent identical requests collapse to one network call.
func (s *Store) BeginFetch(key Key, p Policy) bool {
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		e = &Entry{
			Key:          key,
			FetchedAt:    s.now(),
			StaleAfter:   p.StaleAfter,
			ExpiresAfter: p.ExpiresAfter,
			Status:       StatusPending,
			subscribers:  len(s.subs[k]),
		}
		s.entries[k] = e
		storeEntries.Set(float64(len(s.entries)))
	}
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

// Invalidate marks every entry under prefix stale without deleting it, so
// the next read serves the old value and triggers a background refresh.
// Pending entries are left alone; their first fetch is still outstanding.
// Returns the number of entries marked.
func (s *Store) Invalidate(prefix Key) int {
	type pending struct {
		listeners []Listener
		event     Event
	}

	s.mu.Lock()
	var notifications []pending
	for k, e := range s.entries {
		if !e.Key.HasPrefix(prefix) || e.Status == StatusPending {
			continue
		}
		e.Status = StatusStale
		storeInvalidations.Inc()
		notifications = append(notifications, pending{
			listeners: s.listenersLocked(k),
			event:     Event{Key: e.Key, Op: OpInvalidate, Entry: *e},
		})
	}
	s.mu.Unlock()

	for _, n := range notifications {
		dispatch(n.listeners, n.event)
	}
	return len(notifications)
}

// Remove hard-deletes the entry for key.
func (s *Store) Remove(key Key) {
	k := key.String()

	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, k)
	storeEntries.Set(float64(len(s.entries)))

	event := Event{Key: key, Op: OpRemove, Entry: *e}
	listeners := s.listenersLocked(k)
	s.mu.Unlock()

	dispatch(listeners, event)
}

// Subscribe registers fn for change events on key and returns an
// unsubscribe function. Listeners fire in registration order.
func (s *Store) Subscribe(key Key, fn Listener) func() {
	k := key.String()

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[k] = append(s.subs[k], subscription{id: id, fn: fn})
	if e, ok := s.entries[k]; ok {
		e.subscribers = len(s.subs[k])
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[k]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[k] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subs[k]) == 0 {
			delete(s.subs, k)
		}
		if e, ok := s.entries[k]; ok {
			e.subscribers = len(s.subs[k])
		}
	}
}

// SubscriberCount returns the number of active subscriptions for key.
func (s *Store) SubscriberCount(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[key.String()])
}

// GCSweep deletes entries that have no subscribers, no outstanding fetch and
// are past their ExpiresAfter threshold. Returns the number evicted.
// Intended to be called periodically by the owner of the store.
func (s *Store) GCSweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for k, e := range s.entries {
		if len(s.subs[k]) > 0 || e.inFlight || !e.Expired(now) {
			continue
		}
		delete(s.entries, k)
		evicted++
		storeEvictions.Inc()
	}
	storeEntries.Set(float64(len(s.entries)))

	if evicted > 0 {
		s.logger.Debug().Int("evicted", evicted).Msg("GC sweep complete")
	}
	return evicted
}

// Clear drops every entry, e.g. on logout. Subscribers of dropped keys are
// notified with a remove event; subscriptions themselves survive.
func (s *Store) Clear() {
	type pending struct {
		listeners []Listener
		event     Event
	}

	s.mu.Lock()
	var notifications []pending
	for k, e := range s.entries {
		if listeners := s.listenersLocked(k); len(listeners) > 0 {
			notifications = append(notifications, pending{
				listeners: listeners,
				event:     Event{Key: e.Key, Op: OpRemove, Entry: *e},
			})
		}
	}
	s.entries = make(map[string]*Entry)
	storeEntries.Set(0)
	s.mu.Unlock()

	s.logger.Info().Msg("Cache cleared")
	for _, n := range notifications {
		dispatch(n.listeners, n.event)
	}
}

// KeysWithPrefix returns the keys of all entries under prefix. The mutation
// coordinator uses it to compute the queries a mutation may affect.
func (s *Store) KeysWithPrefix(prefix Key) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []Key
	for _, e := range s.entries {
		if e.Key.HasPrefix(prefix) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// listenersLocked snapshots the listener functions for a key in registration
// order. Callers must hold s.mu.
func (s *Store) listenersLocked(k string) []Listener {
	subs := s.subs[k]
	if len(subs) == 0 {
		return nil
	}
	listeners := make([]Listener, len(subs))
	for i, sub := range subs {
		listeners[i] = sub.fn
	}
	return listeners
}

func dispatch(listeners []Listener, event Event) {
	for _, fn := range listeners {
		fn(event)
	}
}
