package syncer

import (
	"context"
	"time"
)

const (
	backoffBase = time.Second
	backoffMax  = time.Minute
)

// backoffDelay returns the bounded exponential delay for the given retry
// attempt, starting at backoffBase for attempt 0 and capped at backoffMax
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= backoffMax {
			return backoffMax
		}
	}
	return delay
}

// sleep waits for the duration unless the context is cancelled first
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
