package normalizer

import (
	"encoding/json"
	"fmt"
)

const (
	truncationMarker     = "...(truncated)"
	unserializableMarker = "<unserializable>"
)

// serializeRaw renders the original payload for the envelope's raw
// field, bounded to limit bytes. Serialization failures fall back to a
// best-effort string coercion; it never fails outward.
func serializeRaw(payload any, limit int) (raw string) {
	defer func() {
		if recover() != nil {
			raw = unserializableMarker
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return clampBytes(fmt.Sprint(payload), limit)
	}
	return clampBytes(string(data), limit)
}

// clampBytes enforces the raw byte budget, appending a marker when the
// payload was cut.
func clampBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}
