// Package retry wraps remote calls with the backoff the mod.io rate limiter
// expects: no delay before the first re-attempt, then each delay doubles
// plus one second, without an upper bound.
package retry

import (
	"context"
	"time"
)

// wait is swappable for tests.
var wait = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do invokes op until it succeeds or retryable classifies a failure as
// terminal. Terminal failures propagate immediately with the original error.
// The delay sequence is 0s, 1s, 3s, 7s, ... slept in full before each
// re-attempt; cancelling ctx is the only way out of a persistent rate limit.
func Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	var delay time.Duration
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		if err := wait(ctx, delay); err != nil {
			return err
		}
		delay = 2*delay + time.Second
	}
}
