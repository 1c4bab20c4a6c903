package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the key used when no proxy header identifies the caller.
const UnknownClient = "unknown"

// ClientIP identifies the caller from proxy headers, in this order:
// first X-Forwarded-For entry, X-Real-IP, CF-Connecting-IP. RemoteAddr is
// deliberately not consulted; requests without any of these headers share
// the UnknownClient key.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return cf
	}

	return UnknownClient
}
