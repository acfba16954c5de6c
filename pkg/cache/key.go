package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known views. Any other string names a derived view
// (e.g. "byMerchant", "recent", "stats").
const (
	ViewList   = "list"
	ViewDetail = "detail"
)

// Key identifies a cached query. Keys are hierarchical: EntityType is the
// broadest scope, then View, then Arg/Filters. Invalidating a prefix key
// (e.g. just the entity type) invalidates every key beneath it.
type Key struct {
	// EntityType is the entity family (e.g. "products").
	EntityType string

	// View is the query shape: "list", "detail" or a named derived view.
	View string

	// Arg is the id for detail keys or the scope argument of a derived
	// view (e.g. the merchant id of "byMerchant").
	Arg string

	// Filters are the list-query filters. Serialized with sorted keys so
	// that logically equivalent filter sets produce identical keys.
	Filters map[string]string
}

// ListKey builds the key for a filtered list query.
func ListKey(entityType string, filters map[string]string) Key {
	return Key{EntityType: entityType, View: ViewList, Filters: filters}
}

// DetailKey builds the key for a single-entity query.
func DetailKey(entityType, id string) Key {
	return Key{EntityType: entityType, View: ViewDetail, Arg: id}
}

// ViewKey builds the key for a named derived view scoped by arg.
func ViewKey(entityType, view, arg string) Key {
	return Key{EntityType: entityType, View: view, Arg: arg}
}

// TypePrefix builds a prefix key matching every query of an entity type.
func TypePrefix(entityType string) Key {
	return Key{EntityType: entityType}
}

// ListPrefix builds a prefix key matching every list query of an entity type.
func ListPrefix(entityType string) Key {
	return Key{EntityType: entityType, View: ViewList}
}

// segmentEscaper escapes the separator characters of the serialized key, so
// an arg or filter value containing ":" or "=" can never collide with a
// differently structured key.
var segmentEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`, "=", `\=`)

// segments returns the ordered scope segments of the key. Filter keys are
// sorted so permutations of the same filter set yield identical segments.
func (k Key) segments() []string {
	segs := []string{"store", k.EntityType}

	if k.View == "" {
		return segs
	}
	segs = append(segs, k.View)

	if k.Arg != "" {
		segs = append(segs, segmentEscaper.Replace(k.Arg))
	}

	if len(k.Filters) > 0 {
		filterKeys := make([]string, 0, len(k.Filters))
		for key := range k.Filters {
			filterKeys = append(filterKeys, key)
		}
		sort.Strings(filterKeys)

		for _, key := range filterKeys {
			segs = append(segs, fmt.Sprintf("%s=%s",
				segmentEscaper.Replace(key), segmentEscaper.Replace(k.Filters[key])))
		}
	}

	return segs
}

// String generates a deterministic cache key string.
// Format: store:entityType:view:arg:filter1=val1:filter2=val2
//
// Example:
//
//	store:products:list:categoryId=c1:page=2
func (k Key) String() string {
	return strings.Join(k.segments(), ":")
}

// HasPrefix reports whether k lies under prefix in the key hierarchy.
// Matching is segment-wise, so "products" never matches "productsArchive".
func (k Key) HasPrefix(prefix Key) bool {
	ks := k.segments()
	ps := prefix.segments()
	if len(ps) > len(ks) {
		return false
	}
	for i := range ps {
		if ks[i] != ps[i] {
			return false
		}
	}
	return true
}
