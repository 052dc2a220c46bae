// Package ratelimiter throttles how fast the accept loop hands new
// connections to the worker pool.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket over golang.org/x/time/rate.
//
// The accept loop calls Wait before each submission, so an exhausted bucket
// delays the next connection instead of rejecting it. Pending connections
// queue in the kernel listen backlog meanwhile.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter admitting requestsPerSecond connections per
// second with bursts of up to burst.
//
// Special cases:
//   - requestsPerSecond <= 0: unlimited, Wait never blocks
//   - burst <= 0 with a positive rate: burst is rounded up to
//     ceil(requestsPerSecond), minimum 1
func New(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	if burst <= 0 {
		burst = int(requestsPerSecond)
		if float64(burst) < requestsPerSecond {
			burst++
		}
		if burst < 1 {
			burst = 1
		}
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Unlimited reports whether the limiter admits everything.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error if ctx ends first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Limit returns the sustained rate in tokens per second.
func (r *RateLimiter) Limit() float64 {
	return float64(r.limiter.Limit())
}

// Burst returns the bucket capacity.
func (r *RateLimiter) Burst() int {
	return r.limiter.Burst()
}

// Tokens returns the number of tokens currently available. Used for
// periodic metrics logging.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.TokensAt(time.Now())
}
