// Package ratelimiter wraps golang.org/x/time/rate with an HTTP
// middleware used to throttle the query API.
package ratelimiter

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a token bucket limit over API requests.
//
// Tokens refill at a constant rate (requests per second) and each
// request consumes one. The burst capacity bounds how far above the
// sustained rate a short spike may go.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter with the given sustained rate and burst
// capacity.
//
// A requestsPerSecond of 0 disables limiting by configuring an
// effectively unlimited bucket.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		// rate.Inf has edge cases around SetBurst, so use a large
		// finite rate instead.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether one request may proceed right now, consuming a
// token when it may. This is the non-blocking path used by Middleware.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current bucket level. Monitoring only; the value
// may change immediately after the call.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// Middleware rejects requests exceeding the limit with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
