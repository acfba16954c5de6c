package api

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// listEnvelope covers the wrapper shapes the storefront API is known to
// return around list payloads.
type listEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Items  json.RawMessage `json:"items"`
	Orders json.RawMessage `json:"orders"`
}

// decodeList normalizes a list response into a plain slice. A response may
// be a bare array or an object wrapping the array under "data", "items" or
// "orders"; the shapes are tried in that order. An unrecognized shape yields
// an empty slice and a warning instead of an error, so callers render an
// empty state rather than crash on malformed data.
func decodeList[T any](body []byte, logger zerolog.Logger) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, raw := range [][]byte{envelope.Data, envelope.Items, envelope.Orders} {
			if len(raw) == 0 {
				continue
			}
			var wrapped []T
			if err := json.Unmarshal(raw, &wrapped); err == nil {
				return wrapped, nil
			}
		}
	}

	logger.Warn().
		Int("body_bytes", len(body)).
		Msg("List response is neither a bare array nor a known envelope")
	return []T{}, nil
}

// decodeOne normalizes a single-entity response: an object wrapped under
// "data", or a bare object. The envelope is tried first because a bare
// decode of a wrapped body would silently yield a zero-valued entity.
func decodeOne[T any](body []byte) (T, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		var wrapped T
		if err := json.Unmarshal(envelope.Data, &wrapped); err == nil {
			return wrapped, nil
		}
	}

	var out T
	if err := json.Unmarshal(body, &out); err == nil {
		return out, nil
	}

	var zero T
	return zero, &Error{Kind: KindValidation, Message: "undecodable entity response"}
}
