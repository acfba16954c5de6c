package cache

import "time"

// Policy controls the freshness and garbage-collection windows of entries
// written under an entity type.
type Policy struct {
	// StaleAfter is how long an entry is served without a refresh.
	StaleAfter time.Duration

	// ExpiresAfter is how long an unsubscribed entry survives before a GC
	// sweep may delete it. Must be materially larger than StaleAfter.
	ExpiresAfter time.Duration
}

// DefaultPolicy is the fallback for entity types without a tuned policy.
func DefaultPolicy() Policy {
	return Policy{
		StaleAfter:   5 * time.Minute,
		ExpiresAfter: 30 * time.Minute,
	}
}

// policies maps entity types to their freshness windows. Fast-changing
// entities (cart, orders) get short windows, slow-changing catalog data
// (categories, brands) long ones.
var policies = map[string]Policy{
	"products":   {StaleAfter: 2 * time.Minute, ExpiresAfter: 30 * time.Minute},
	"categories": {StaleAfter: 10 * time.Minute, ExpiresAfter: time.Hour},
	"brands":     {StaleAfter: 10 * time.Minute, ExpiresAfter: time.Hour},
	"orders":     {StaleAfter: time.Minute, ExpiresAfter: 15 * time.Minute},
	"users":      {StaleAfter: 5 * time.Minute, ExpiresAfter: 30 * time.Minute},
	"stats":      {StaleAfter: time.Minute, ExpiresAfter: 15 * time.Minute},
	"cart":       {StaleAfter: 30 * time.Second, ExpiresAfter: 10 * time.Minute},
}

// PolicyFor returns the freshness policy for an entity type.
func PolicyFor(entityType string) Policy {
	if p, ok := policies[entityType]; ok {
		return p
	}
	return DefaultPolicy()
}
