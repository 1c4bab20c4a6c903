package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock safe for use from the reaper goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, clock *fakeClock, opts ...MemoryOption) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(append([]MemoryOption{WithClock(clock.Now)}, opts...)...)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryStore_AdmitsUpToLimitThenRejects(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		e, d, err := store.Take(ctx, "k", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be admitted", i)
		assert.Equal(t, i, e.Count)
		assert.Equal(t, 5-i, d.Remaining)
		clock.Advance(time.Second)
	}

	e, d, err := store.Take(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 5, e.Count, "rejection must not increment the count")
	assert.Equal(t, 0, d.Remaining)
	// Window opened at T, now is T+5s: 55s remain.
	assert.Equal(t, 55, d.RetryAfter)
}

func TestMemoryStore_RejectionKeepsCountAndReset(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	first, _, err := store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		e, d, err := store.Take(ctx, "k", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 1, e.Count)
		assert.True(t, first.ResetAt.Equal(e.ResetAt), "rejections must not extend the window")
	}
}

func TestMemoryStore_WindowReset(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	var resetAt time.Time
	for i := 0; i < 3; i++ {
		e, _, err := store.Take(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		resetAt = e.ResetAt
	}
	_, d, err := store.Take(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	clock.Advance(time.Minute + time.Millisecond)

	e, d, err := store.Take(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, e.Count)
	assert.True(t, e.ResetAt.Equal(clock.Now().Add(time.Minute)))
	assert.True(t, e.ResetAt.After(resetAt))
}

func TestMemoryStore_WindowEndsExactlyAtReset(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	_, _, err := store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	e, d, err := store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a request at resetAt starts a new window")
	assert.Equal(t, 1, e.Count)
}

func TestMemoryStore_RetryAfterRoundsUp(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	_, _, err := store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	clock.Advance(58*time.Second + 500*time.Millisecond)
	_, d, err := store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, d.RetryAfter, "1.5s remaining rounds up to 2")

	clock.Advance(1499 * time.Millisecond)
	_, d, err = store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, d.RetryAfter, "1ms remaining rounds up to 1")

	clock.Advance(500 * time.Microsecond)
	_, d, err = store.Take(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RetryAfter, "sub-millisecond remainder still asks for a 1s wait")
}

func TestRetryAfterSeconds(t *testing.T) {
	reset := time.Date(2026, 10, 19, 12, 1, 0, 0, time.UTC)
	tests := []struct {
		left time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Nanosecond, 1},
		{500 * time.Microsecond, 1},
		{time.Second, 1},
		{time.Second + time.Nanosecond, 2},
		{15 * time.Minute, 900},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfterSeconds(reset, reset.Add(-tt.left)), "left %v", tt.left)
	}
}

func TestMemoryStore_KeyIsolation(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := store.Take(ctx, "a", 2, time.Minute)
		require.NoError(t, err)
	}
	_, d, err := store.Take(ctx, "a", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "a should be exhausted")

	e, d, err := store.Take(ctx, "b", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "b must be unaffected by a")
	assert.Equal(t, 1, e.Count)
}

func TestMemoryStore_ConcurrentTakeNeverExceedsLimit(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	const limit = 50
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, d, err := store.Take(context.Background(), "shared", limit, time.Hour)
				if err == nil && d.Allowed {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

func TestMemoryStore_ReapRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock)
	ctx := context.Background()

	_, _, err := store.Take(ctx, "short", 5, time.Second)
	require.NoError(t, err)
	_, _, err = store.Take(ctx, "long", 5, time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, store.reap())

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	store.mu.Lock()
	_, stillThere := store.entries["long"]
	store.mu.Unlock()
	assert.True(t, stillThere)
}

func TestMemoryStore_ReaperRunsInBackground(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, clock, WithReapInterval(10*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.Take(ctx, fmt.Sprintf("client-%d", i), 5, time.Second)
		require.NoError(t, err)
	}
	clock.Advance(time.Second + time.Millisecond)

	require.Eventually(t, func() bool {
		n, _ := store.Len(ctx)
		return n == 0
	}, time.Second, 10*time.Millisecond)

	// A reaped key behaves like a first-ever request.
	e, d, err := store.Take(ctx, "client-0", 5, time.Second)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, e.Count)
}

func TestMemoryStore_Ping(t *testing.T) {
	store := newTestStore(t, newFakeClock())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore(WithReapInterval(5 * time.Millisecond))
	assert.NoError(t, store.Close())
	// Should not panic on double close
	assert.NoError(t, store.Close())
}

func TestWithReapInterval_IgnoresNonPositive(t *testing.T) {
	store := NewMemoryStore(WithReapInterval(0))
	defer store.Close()
	assert.Equal(t, DefaultReapInterval, store.reapInterval)
}
