package ratelimit

import (
	"context"
	"time"
)

// Entry is the window state for one key.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// expired reports whether the window has ended at now.
func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// Store holds window entries. Implementations must make Take atomic per key
// and be safe for concurrent use.
type Store interface {
	// Take applies the fixed-window rule for key at the store's current time
	// and returns the resulting entry and decision.
	Take(ctx context.Context, key string, limit int, window time.Duration) (Entry, Decision, error)

	// Len returns the number of tracked keys, including expired ones not yet reaped.
	// It may walk the whole store; use Ping for liveness.
	Len(ctx context.Context) (int, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases background work and connections.
	Close() error
}

// take is the fixed-window transition shared by every Store.
//
// A missing or expired entry is replaced with a fresh window that admits the
// triggering request. A full window rejects without touching the count.
// Otherwise the count is incremented in place.
func take(e Entry, found bool, now time.Time, limit int, window time.Duration) (Entry, Decision) {
	if !found || e.expired(now) {
		e = Entry{Count: 1, ResetAt: now.Add(window)}
		return e, Decision{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: e.ResetAt}
	}

	if e.Count >= limit {
		return e, Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    e.ResetAt,
			RetryAfter: retryAfterSeconds(e.ResetAt, now),
		}
	}

	e.Count++
	return e, Decision{Allowed: true, Limit: limit, Remaining: limit - e.Count, ResetAt: e.ResetAt}
}

// retryAfterSeconds rounds the remaining window up to whole seconds. Any
// time left at all yields at least 1.
func retryAfterSeconds(resetAt, now time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
