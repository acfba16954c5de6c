package cache

import (
	"encoding/json"
	"reflect"
)

// CloneValue deep-copies a cached value via a JSON round-trip, preserving the
// dynamic type. The store uses it so written values never alias the caller's
// object; the mutation coordinator uses it for rollback snapshots.
//
// Values must be JSON-serializable, which all catalog entities are. A value
// that fails to serialize is returned as-is.
func CloneValue(v any) any {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	out := reflect.New(reflect.TypeOf(v))
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return v
	}
	return out.Elem().Interface()
}
