package normalizer

import (
	"sort"
)

// Value-capping bounds for the generic fallback body.
const (
	capStringOver = 512
	capStringTo   = 128
	capArrayLen   = 3

	ellipsisMarker    = "…"
	objectPlaceholder = "[object]"
)

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// nonEmptyString returns v when it is a non-empty string, else "".
func nonEmptyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := nonEmptyString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// capSlice returns up to n leading elements of v when it is an array,
// preserving order. Non-arrays yield an empty slice so body fields keep
// a stable shape.
func capSlice(v any, n int) []any {
	arr, ok := asSlice(v)
	if !ok {
		return []any{}
	}
	if len(arr) > n {
		arr = arr[:n]
	}
	out := make([]any, len(arr))
	copy(out, arr)
	return out
}

// capValue bounds a single generic body value: long strings are cut
// hard, arrays keep their first elements, nested objects collapse to an
// opaque placeholder.
func capValue(v any) any {
	switch val := v.(type) {
	case string:
		if len([]rune(val)) > capStringOver {
			return truncateRunes(val, capStringTo) + ellipsisMarker
		}
		return val
	case []any:
		capped := val
		if len(capped) > capArrayLen {
			capped = capped[:capArrayLen]
		}
		out := make([]any, len(capped))
		for i, el := range capped {
			out[i] = capValue(el)
		}
		return out
	case map[string]any:
		return objectPlaceholder
	default:
		return v
	}
}

// sortedKeys returns the map keys in a stable order so repeated
// normalization of the same payload yields identical bodies.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
