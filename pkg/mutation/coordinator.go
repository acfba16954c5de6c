// Package mutation orchestrates writes against the storefront API with
// optimistic cache application, rollback on failure and reconciliation on
// success.
//
// One generic Coordinator serves every entity type; the per-entity
// optimistic logic of the storefront (products, categories, brands, orders,
// users) collapses into instantiations of it.
package mutation

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/velora-labs/storefront-cache/pkg/api"
	"github.com/velora-labs/storefront-cache/pkg/cache"
	"github.com/velora-labs/storefront-cache/pkg/catalog"
)

var mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_mutations_total",
	Help: "Total mutations by entity type, operation and outcome",
}, []string{"entity_type", "operation", "outcome"})

// Phase is the lifecycle state of one mutation.
type Phase string

const (
	PhaseApplying   Phase = "applying"
	PhaseInFlight   Phase = "in-flight"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
	PhaseRolledBack Phase = "rolled-back"
)

// Gateway is the remote origin of one entity type. api.Resource satisfies it.
type Gateway[T any] interface {
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, partial map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
}

// Hooks receive mutation lifecycle callbacks, mirroring the onMutate /
// onSuccess / onError / onSettled contract of the UI binding layer.
// Any field may be nil.
type Hooks[T any] struct {
	// OnMutate fires after the optimistic value is applied to the cache.
	OnMutate func(optimistic T)

	// OnSuccess fires after reconciliation with the authoritative entity.
	OnSuccess func(authoritative T)

	// OnError fires after rollback, with the classified gateway error.
	OnError func(err error)

	// OnSettled fires last, regardless of outcome.
	OnSettled func(phase Phase)
}

// Coordinator applies create/update/delete operations for one entity type
// with optimistic semantics. It and the query coordinator are the only
// writers of the cache store.
type Coordinator[T catalog.Entity] struct {
	// Hooks are invoked at the corresponding lifecycle steps.
	Hooks Hooks[T]

	entityType string
	store      *cache.Store
	gateway    Gateway[T]
	withID     func(T, string) T
	logger     zerolog.Logger
}

// NewCoordinator creates a mutation coordinator for entityType. withID must
// return a copy of the entity carrying the given id; it is how the
// coordinator stamps temporary ids onto optimistic creates.
func NewCoordinator[T catalog.Entity](entityType string, store *cache.Store, gateway Gateway[T], withID func(T, string) T) *Coordinator[T] {
	return &Coordinator[T]{
		entityType: entityType,
		store:      store,
		gateway:    gateway,
		withID:     withID,
		logger:     log.With().Str("component", "mutation-coordinator").Str("entity_type", entityType).Logger(),
	}
}

// snapshotEntry captures one cache entry before a mutation touches it.
type snapshotEntry struct {
	key          cache.Key
	value        any
	staleAfter   time.Duration
	expiresAfter time.Duration
	existed      bool
}

// mutationContext is the ephemeral per-mutation record: affected keys,
// rollback snapshot, optimistic id and phase.
type mutationContext struct {
	affected     []cache.Key
	snapshot     map[string]snapshotEntry
	optimisticID string
	phase        Phase
}

// Create applies an optimistic entity with a temporary id, posts the payload
// and reconciles every cached copy with the server's authoritative entity.
func (m *Coordinator[T]) Create(ctx context.Context, payload T) (T, error) {
	mc := m.begin("")
	mc.optimisticID = catalog.NewTempID()

	optimistic := m.withID(payload, mc.optimisticID)
	m.transformLists(mc, func(items []T) []T {
		return append([]T{optimistic}, items...)
	})
	m.fireOnMutate(optimistic)

	mc.phase = PhaseInFlight
	authoritative, err := m.gateway.Create(ctx, payload)
	if err != nil {
		var zero T
		return zero, m.fail(mc, "create", err)
	}

	// swap the temporary entity for the real one everywhere
	m.transformLists(mc, func(items []T) []T {
		for i, item := range items {
			if item.EntityID() == mc.optimisticID {
				items[i] = authoritative
			}
		}
		return items
	})
	m.store.Write(cache.DetailKey(m.entityType, authoritative.EntityID()), authoritative, cache.PolicyFor(m.entityType))

	return authoritative, m.succeed(mc, "create", authoritative)
}

// Update shallow-merges partial onto the cached entity, applies the merge
// optimistically to the detail entry and every list containing the id, then
// reconciles with the server response.
func (m *Coordinator[T]) Update(ctx context.Context, id string, partial map[string]any) (T, error) {
	mc := m.begin(id)

	base, ok := m.cachedEntity(id)
	if ok {
		optimistic := mergePartial(base, partial)
		m.applyEverywhere(mc, id, optimistic)
		m.fireOnMutate(optimistic)
	}

	mc.phase = PhaseInFlight
	authoritative, err := m.gateway.Update(ctx, id, partial)
	if err != nil {
		var zero T
		return zero, m.fail(mc, "update", err)
	}

	m.applyEverywhere(mc, id, authoritative)

	return authoritative, m.succeed(mc, "update", authoritative)
}

// Delete removes the entity optimistically from every list view and the
// detail entry, restoring all of them if the origin refuses.
func (m *Coordinator[T]) Delete(ctx context.Context, id string) error {
	mc := m.begin(id)

	m.transformLists(mc, func(items []T) []T {
		return slices.DeleteFunc(items, func(item T) bool {
			return item.EntityID() == id
		})
	})
	m.store.Remove(cache.DetailKey(m.entityType, id))

	mc.phase = PhaseInFlight
	if err := m.gateway.Delete(ctx, id); err != nil {
		return m.fail(mc, "delete", err)
	}

	mc.phase = PhaseSucceeded
	mutationsTotal.WithLabelValues(m.entityType, "delete", "succeeded").Inc()
	m.settle(mc)
	return nil
}

// begin computes the affected keys (every non-detail query of the type,
// plus the detail key when an id is known) and snapshots them for rollback.
func (m *Coordinator[T]) begin(id string) *mutationContext {
	mc := &mutationContext{
		phase:    PhaseApplying,
		snapshot: make(map[string]snapshotEntry),
	}

	for _, key := range m.store.KeysWithPrefix(cache.TypePrefix(m.entityType)) {
		if key.View == cache.ViewDetail && key.Arg != id {
			continue
		}
		mc.affected = append(mc.affected, key)
	}
	if id != "" {
		detail := cache.DetailKey(m.entityType, id)
		if !slices.ContainsFunc(mc.affected, func(k cache.Key) bool { return k.String() == detail.String() }) {
			mc.affected = append(mc.affected, detail)
		}
	}

	for _, key := range mc.affected {
		entry, ok := m.store.Read(key)
		snap := snapshotEntry{key: key, existed: ok}
		if ok {
			snap.value = cache.CloneValue(entry.Value)
			snap.staleAfter = entry.StaleAfter
			snap.expiresAfter = entry.ExpiresAfter
		}
		mc.snapshot[key.String()] = snap
	}
	return mc
}

// transformLists rewrites every affected slice-valued entry through fn.
// Entries holding other shapes (detail entities, derived aggregates) are
// left for the settle-time invalidation to reconcile.
func (m *Coordinator[T]) transformLists(mc *mutationContext, fn func([]T) []T) {
	for _, key := range mc.affected {
		if key.View == cache.ViewDetail {
			continue
		}
		entry, ok := m.store.Read(key)
		if !ok {
			continue
		}
		items, ok := entry.Value.([]T)
		if !ok {
			continue
		}
		next := fn(slices.Clone(items))
		m.store.Write(key, next, cache.Policy{StaleAfter: entry.StaleAfter, ExpiresAfter: entry.ExpiresAfter})
	}
}

// applyEverywhere writes entity under its detail key and replaces it by id
// in every affected list.
func (m *Coordinator[T]) applyEverywhere(mc *mutationContext, id string, entity T) {
	m.transformLists(mc, func(items []T) []T {
		for i, item := range items {
			if item.EntityID() == id {
				items[i] = entity
			}
		}
		return items
	})
	m.store.Write(cache.DetailKey(m.entityType, id), entity, cache.PolicyFor(m.entityType))
}

// cachedEntity finds the current cached copy of id, preferring the detail
// entry over list occurrences.
func (m *Coordinator[T]) cachedEntity(id string) (T, bool) {
	if entry, ok := m.store.Read(cache.DetailKey(m.entityType, id)); ok {
		if entity, ok := entry.Value.(T); ok {
			return entity, true
		}
	}

	for _, key := range m.store.KeysWithPrefix(cache.TypePrefix(m.entityType)) {
		if key.View == cache.ViewDetail {
			continue
		}
		entry, ok := m.store.Read(key)
		if !ok {
			continue
		}
		items, ok := entry.Value.([]T)
		if !ok {
			continue
		}
		for _, item := range items {
			if item.EntityID() == id {
				return item, true
			}
		}
	}

	var zero T
	return zero, false
}

// fail rolls the affected entries back to their snapshot, fires the error
// hooks and settles. The returned error is the gateway's, unchanged.
func (m *Coordinator[T]) fail(mc *mutationContext, operation string, err error) error {
	mc.phase = PhaseFailed
	mutationsTotal.WithLabelValues(m.entityType, operation, "failed").Inc()

	if rbErr := m.rollback(mc); rbErr != nil {
		// rollback against a missing snapshot is a coordinator bug
		m.logger.Error().Err(rbErr).Str("operation", operation).Msg("ROLLBACK FAILED: cache integrity violated")
	} else {
		mc.phase = PhaseRolledBack
	}

	m.logger.Warn().Str("operation", operation).Err(err).Msg("Mutation failed, cache rolled back")
	if m.Hooks.OnError != nil {
		m.Hooks.OnError(err)
	}
	m.settle(mc)
	return err
}

func (m *Coordinator[T]) succeed(mc *mutationContext, operation string, authoritative T) error {
	mc.phase = PhaseSucceeded
	mutationsTotal.WithLabelValues(m.entityType, operation, "succeeded").Inc()

	if m.Hooks.OnSuccess != nil {
		m.Hooks.OnSuccess(authoritative)
	}
	m.settle(mc)
	return nil
}

// rollback restores every affected entry from the snapshot this mutation
// captured. Concurrent mutations each restore only their own snapshot.
func (m *Coordinator[T]) rollback(mc *mutationContext) error {
	if mc.snapshot == nil {
		return &api.Error{Kind: api.KindCacheIntegrity, Message: "rollback without snapshot"}
	}

	for _, key := range mc.affected {
		snap, ok := mc.snapshot[key.String()]
		if !ok {
			return &api.Error{Kind: api.KindCacheIntegrity, Message: "no snapshot for " + key.String()}
		}
		if !snap.existed {
			m.store.Remove(key)
			continue
		}
		m.store.Write(key, snap.value, cache.Policy{StaleAfter: snap.staleAfter, ExpiresAfter: snap.expiresAfter})
	}
	return nil
}

// settle marks every affected key stale regardless of outcome, so the next
// read reconciles with the origin even if the optimistic merge missed
// server-computed fields.
func (m *Coordinator[T]) settle(mc *mutationContext) {
	m.store.Invalidate(cache.TypePrefix(m.entityType))
	if m.Hooks.OnSettled != nil {
		m.Hooks.OnSettled(mc.phase)
	}
}

func (m *Coordinator[T]) fireOnMutate(optimistic T) {
	if m.Hooks.OnMutate != nil {
		m.Hooks.OnMutate(optimistic)
	}
}

// mergePartial overlays partial onto base field-by-field through JSON,
// giving the shallow-merge semantics of an optimistic update.
func mergePartial[T any](base T, partial map[string]any) T {
	data, err := json.Marshal(base)
	if err != nil {
		return base
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return base
	}
	for key, value := range partial {
		fields[key] = value
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return base
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return base
	}
	return out
}
