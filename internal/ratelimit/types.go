// Package ratelimit throttles requests per key with a fixed-window counter,
// in memory or in a shared Redis.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// RetryAfter reports how long a rejected caller should wait, rounded up to
// whole seconds.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || r.Reset.IsZero() {
		return 0
	}
	wait := r.Reset.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// windowStart returns the index of the fixed window containing now and the
// time it ends.
func windowStart(now time.Time, window time.Duration) (int64, time.Time) {
	if window < time.Second {
		window = time.Second
	}
	idx := now.UnixNano() / int64(window)
	return idx, time.Unix(0, (idx+1)*int64(window)).UTC()
}
