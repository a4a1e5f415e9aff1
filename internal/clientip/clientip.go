// Package clientip resolves a stable client identifier from request headers.
package clientip

import (
	"net/http"
	"strings"
)

// Unknown is the shared identifier for clients with no identifying header.
// All such clients land in one reputation bucket; that coarse-graining is
// deliberate and documented behavior.
const Unknown = "unknown"

// FromRequest returns a single opaque identifier for the requesting client.
// Preference order: first segment of X-Forwarded-For, then X-Real-IP, then
// X-Remote-Addr, then Unknown. The value is never validated as an address;
// it is only used as a reputation key. This function cannot fail.
func FromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if remote := r.Header.Get("X-Remote-Addr"); remote != "" {
		return remote
	}
	return Unknown
}
