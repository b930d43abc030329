package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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

func TestMemoryStore_QuotaEnforced(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(3, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := store.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within quota", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := store.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "request over quota rejected")
	assert.Equal(t, 0, res.Remaining)
	assert.Positive(t, res.RetryAfter)
}

// Quota=2, window=60s: requests at t=0 and t=1 admitted, t=2 rejected,
// t=61 admitted again.
func TestMemoryStore_SlidingWindowScenario(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(2, 60*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	res, err := store.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "t=0 admitted")

	clock.Advance(time.Second)
	res, err = store.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "t=1 admitted")

	clock.Advance(time.Second)
	res, err = store.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "t=2 rejected")

	clock.Advance(59 * time.Second)
	res, err = store.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "t=61 admitted after the oldest entry left the window")
}

func TestMemoryStore_RejectionNotRecorded(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	res, _ := store.Allow(ctx, "client-a")
	require.True(t, res.Allowed)

	// Hammer the limiter while blocked; none of these may extend the window.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		res, _ = store.Allow(ctx, "client-a")
		assert.False(t, res.Allowed)
	}

	// 61 seconds after the single admitted request, the window is clear.
	clock.Advance(51 * time.Second)
	res, _ = store.Allow(ctx, "client-a")
	assert.True(t, res.Allowed, "rejected requests must not count against the window")
}

func TestMemoryStore_FullWindowResets(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(2, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	store.Allow(ctx, "client-a")
	store.Allow(ctx, "client-a")

	clock.Advance(time.Minute + time.Second)
	res, err := store.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining, "count reset to zero before this request")
}

func TestMemoryStore_IdentitiesIndependent(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	res, _ := store.Allow(ctx, "client-a")
	require.True(t, res.Allowed)
	res, _ = store.Allow(ctx, "client-a")
	require.False(t, res.Allowed, "client-a exhausted")

	res, _ = store.Allow(ctx, "client-b")
	assert.True(t, res.Allowed, "client-b has its own quota")
}

func TestMemoryStore_ConcurrentSameIdentity(t *testing.T) {
	const quota = 50
	store := NewMemoryStore(quota, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < quota*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Allow(ctx, "shared-client")
			if err == nil && res.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(quota), admitted.Load(),
		"concurrent checks for one identity must admit exactly the quota")
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(5, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	store.Allow(ctx, "idle-client")
	clock.Advance(2 * time.Minute)
	store.Allow(ctx, "active-client")

	evicted, tracked, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, tracked)
	assert.Equal(t, 1, store.Len())

	// The evicted identity starts fresh.
	res, _ := store.Allow(ctx, "idle-client")
	assert.True(t, res.Allowed)
}
