// Package ratelimit implements per-client sliding-window rate limiting.
//
// A client identity (its network address) owns an ordered sequence of
// request timestamps. On every check, entries strictly older than
// now-window are dropped, and the request is admitted only while the
// remaining count is below the quota. Identities are independent: one
// client exhausting its quota never affects another.
//
// The identity is not authenticated; the limiter bounds traffic per
// observed address, nothing more.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one admission check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; zero when allowed
}

// Store is the admission interface the middleware consumes. Implementations
// must make the read-check-append sequence atomic per identity: two
// concurrent requests from the same client must never both slip past the
// quota.
type Store interface {
	// Allow checks whether the identity may proceed and, if so, records
	// the request. A rejected request is never recorded.
	Allow(ctx context.Context, identity string) (*Result, error)
}

// retryAfterSeconds calculates whole seconds until retry is allowed.
func retryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed {
		return 0
	}
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
