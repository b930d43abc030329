package ratelimit

import (
	"context"
	"sync"
	"time"
)

// shardCount spreads identities across independent locks so checks for
// different clients proceed in parallel while same-identity checks stay
// serialized.
const shardCount = 32

// MemoryStore implements Store with an in-process sharded sliding window.
// It never returns an error; exhaustion is signaled purely through the
// Result. For multi-instance deployments use RedisStore instead.
type MemoryStore struct {
	quota  int
	window time.Duration
	now    func() time.Time

	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
}

// slidingWindow holds one identity's admitted request timestamps,
// monotonically increasing by insertion order.
type slidingWindow struct {
	timestamps []time.Time
}

// purge drops every entry strictly older than windowStart. Entries exactly
// at windowStart remain: the window is inclusive of its full span.
func (sw *slidingWindow) purge(windowStart time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if !sw.timestamps[i].Before(windowStart) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects a time source. Tests use it to drive the window
// deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-memory sliding-window store admitting at most
// quota requests per identity in any trailing window.
func NewMemoryStore(quota int, window time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		quota:  quota,
		window: window,
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i].windows = make(map[string]*slidingWindow)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow checks the identity's window and records the request when admitted.
// The purge-count-append sequence runs under the shard lock, so concurrent
// checks for the same identity cannot race past the quota.
func (s *MemoryStore) Allow(_ context.Context, identity string) (*Result, error) {
	now := s.now()
	windowStart := now.Add(-s.window)

	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sw, ok := sh.windows[identity]
	if !ok {
		sw = &slidingWindow{}
		sh.windows[identity] = sw
	}

	sw.purge(windowStart)

	if len(sw.timestamps) >= s.quota {
		resetAt := sw.timestamps[0].Add(s.window)
		return &Result{
			Allowed:    false,
			Limit:      s.quota,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(false, resetAt, now),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Limit:     s.quota,
		Remaining: s.quota - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(s.window),
	}, nil
}

// Sweep removes identities whose windows hold no timestamp inside the
// current window, bounding the table under client churn. Returns how many
// identities were evicted and how many remain tracked.
func (s *MemoryStore) Sweep(_ context.Context) (evicted, tracked int, err error) {
	windowStart := s.now().Add(-s.window)

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for identity, sw := range sh.windows {
			sw.purge(windowStart)
			if len(sw.timestamps) == 0 {
				delete(sh.windows, identity)
				evicted++
			}
		}
		tracked += len(sh.windows)
		sh.mu.Unlock()
	}
	return evicted, tracked, nil
}

// Len returns the number of identities currently tracked.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) shardFor(identity string) *shard {
	return &s.shards[hashString(identity)%shardCount]
}

// hashString provides a simple hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
