package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bind8/internal/models"

	"github.com/gorilla/mux"
)

// resetLayout renders X-RateLimit-Reset as an ISO-8601 UTC timestamp with milliseconds.
const resetLayout = "2006-01-02T15:04:05.000Z"

// Middleware returns HTTP middleware that enforces l's policy. It must run
// before authentication and body validation so rejected callers never reach
// them. A failing store admits the request and logs the error.
func Middleware(l *Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Check(r.Context(), r)
			if err != nil {
				slog.Error("Rate limit check failed, admitting request",
					"policy", l.policy.Name,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !d.Allowed {
				WriteRejection(w, d)
				slog.Warn("Rate limit exceeded",
					"policy", l.policy.Name,
					"key", l.policy.KeyFunc(r),
					"limit", d.Limit,
					"retry_after", d.RetryAfter,
				)
				return
			}

			setHeaders(w.Header(), d)
			next.ServeHTTP(w, r)
		})
	}
}

// WriteRejection writes the 429 response for a rejected decision.
func WriteRejection(w http.ResponseWriter, d Decision) {
	h := w.Header()
	setHeaders(h, d)
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("Retry-After", strconv.Itoa(d.RetryAfter))
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	if err := json.NewEncoder(w).Encode(models.NewTooManyRequestsResponse(d.RetryAfter)); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

func setHeaders(h http.Header, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
	h.Set("X-RateLimit-Reset", FormatReset(d.ResetAt))
}

// FormatReset renders a window end the way X-RateLimit-Reset carries it.
func FormatReset(t time.Time) string {
	return t.UTC().Format(resetLayout)
}
