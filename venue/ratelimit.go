package venue

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter enforces the rolling-window limit spec.md §4.3 describes ("at
// most N calls per T seconds; on excess, block the caller") for one
// adapter's REST calls. It is a thin wrapper over golang.org/x/time/rate's
// token bucket — the teacher's go.mod already carries golang.org/x/time for
// exactly this purpose — configured so its refill rate delivers N tokens
// per window and its burst equals N, giving the same "allow a full burst of
// N, then settle into the steady rate" shape the spec calls for.
//
// RateLimiter is not shared across adapters (spec.md §4.3): each adapter
// constructs its own.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing calls per window duration.
func NewRateLimiter(calls int, window float64) *RateLimiter {
	if calls <= 0 {
		calls = 1
	}
	r := rate.Limit(float64(calls) / window)
	return &RateLimiter{limiter: rate.NewLimiter(r, calls)}
}

// Wait blocks the caller until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether a call may proceed immediately without blocking,
// consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}
