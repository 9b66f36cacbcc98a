package middleware

import "strings"

// OriginAllowed reports whether origin matches the allow-list. An empty
// list or a bare "*" entry allows everything. Entries of the form
// "*.example.com" match any subdomain of example.com.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" {
			return true
		}
		if strings.HasPrefix(a, "*.") {
			suffix := strings.TrimPrefix(a, "*")
			if strings.HasSuffix(origin, suffix) {
				return true
			}
			continue
		}
		if origin == a {
			return true
		}
	}
	return false
}
