// Package ratelimit provides the process-wide token bucket that throttles
// every outbound call: catalog pages, order books, embeddings, and LLM
// analysis all drain the same bucket.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket refilled at a fixed requests-per-second rate.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a limiter allowing rps requests per second with a burst of one
// second's worth of tokens.
func New(rps float64) *Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming it if so.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
