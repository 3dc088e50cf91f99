package polymarket

import (
	"context"
	"math/rand"
	"time"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 8 * time.Second
)

// sleepBackoff waits for an exponentially growing interval with full jitter
// before the attempt-th retry (0-based). Returns the context error when the
// context is cancelled during the wait.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := backoffBase << attempt
	if d > backoffCap {
		d = backoffCap
	}
	// Full jitter: uniform in [0, d].
	d = time.Duration(rand.Int63n(int64(d) + 1))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
