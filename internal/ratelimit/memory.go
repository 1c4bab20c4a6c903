package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultReapInterval is how often MemoryStore sweeps expired windows.
const DefaultReapInterval = time.Minute

// MemoryStore keeps window entries in a process-local map. Counts are not
// shared between processes: with N replicas a client can be admitted up to N
// times the policy ceiling. Use RedisStore when that matters.
//
// A background goroutine removes expired entries every reap interval so keys
// that stop sending requests do not stay resident.
type MemoryStore struct {
	now          func() time.Time
	reapInterval time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	done    chan struct{}
	closed  bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// WithReapInterval overrides DefaultReapInterval. Non-positive values are ignored.
func WithReapInterval(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if d > 0 {
			m.reapInterval = d
		}
	}
}

// NewMemoryStore creates a store and starts its reaper. Call Close to stop it.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		now:          time.Now,
		reapInterval: DefaultReapInterval,
		entries:      make(map[string]*Entry),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.reapLoop()
	return m
}

// Take applies the fixed-window rule for key under the store lock.
func (m *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration) (Entry, Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var current Entry
	e, found := m.entries[key]
	if found {
		current = *e
	}

	next, d := take(current, found, now, limit, window)
	if !found {
		m.entries[key] = &next
	} else {
		*e = next
	}
	return next, d, nil
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Ping always succeeds; the store lives in process memory.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close stops the reaper. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *MemoryStore) reapLoop() {
	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.reap(); n > 0 {
				slog.Debug("Reaped expired rate limit windows", "count", n)
			}
		}
	}
}

// reap deletes every entry whose window has ended and returns how many it removed.
func (m *MemoryStore) reap() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
