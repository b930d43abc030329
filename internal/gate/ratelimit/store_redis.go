package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:ip:"

// slidingWindowScript keeps the purge-count-append sequence atomic on the
// Redis side. Each identity owns a sorted set of request timestamps scored
// in unix milliseconds.
//
// KEYS[1] = identity key
// ARGV[1] = window start (ms), ARGV[2] = now (ms), ARGV[3] = quota,
// ARGV[4] = key TTL (ms), ARGV[5] = unique member
//
// Returns {allowed, count, oldest_score}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. ARGV[1])
local count = redis.call("ZCARD", key)
if count >= tonumber(ARGV[3]) then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  return {0, count, oldest[2]}
end
redis.call("ZADD", key, ARGV[2], ARGV[5])
redis.call("PEXPIRE", key, ARGV[4])
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
return {1, count + 1, oldest[2]}
`)

// RedisStore implements Store on a shared Redis instance so multiple
// gateway replicas enforce one quota per client. Key expiry doubles as
// eviction: an identity that stops sending requests disappears after one
// window with no sweeper involved.
type RedisStore struct {
	client *redis.Client
	quota  int
	window time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed sliding-window store.
func NewRedisStore(client *redis.Client, quota int, window time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		quota:  quota,
		window: window,
		now:    time.Now,
	}
}

// Allow runs the sliding-window script for the identity. Errors (Redis
// unreachable, script failure) bubble up so the middleware can decide the
// fail-open behavior; the store itself never guesses.
func (s *RedisStore) Allow(ctx context.Context, identity string) (*Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-s.window).UnixMilli()

	raw, err := slidingWindowScript.Run(ctx, s.client,
		[]string{redisKeyPrefix + identity},
		windowStartMs,
		nowMs,
		s.quota,
		s.window.Milliseconds(),
		fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}

	allowed := toInt64(raw[0]) == 1
	count := int(toInt64(raw[1]))
	oldestMs := toInt64(raw[2])

	resetAt := time.UnixMilli(oldestMs).Add(s.window)
	remaining := s.quota - count
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:    allowed,
		Limit:      s.quota,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}, nil
}

// toInt64 coerces the mixed integer/string replies Lua scripts produce.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		var out int64
		_, _ = fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}
