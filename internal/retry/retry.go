// Package retry provides a bounded retry helper with configurable
// inter-attempt delays. It backs both the network-readiness poll during
// provisioning and the package-install loop during bootstrap.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DelayFunc computes the delay before the next attempt. The attempt
// argument is the number of the attempt that just failed, starting at 1.
type DelayFunc func(attempt int) time.Duration

// Fixed returns a DelayFunc with a constant inter-attempt delay.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Linear returns a DelayFunc whose delay grows by step with every
// failed attempt: step after the first, 2*step after the second, and so on.
func Linear(step time.Duration) DelayFunc {
	return func(attempt int) time.Duration { return time.Duration(attempt) * step }
}

// sleepFn is replaceable in tests so retry behavior can be verified
// without real delays.
var sleepFn = sleepContext

// SetSleepFunc replaces the sleep implementation and returns a function
// that restores the previous one. Tests use this to record delays.
func SetSleepFunc(fn func(context.Context, time.Duration) error) (restore func()) {
	prev := sleepFn
	sleepFn = fn
	return func() { sleepFn = prev }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to attempts times, sleeping delay(n) between attempts.
// It returns nil as soon as op succeeds. After the final failed attempt
// it returns the last error wrapped with the attempt count; no delay
// follows the final attempt. Context cancellation aborts the wait and
// is returned immediately.
func Do(ctx context.Context, attempts int, delay DelayFunc, op func(attempt int) error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be at least 1, got %d", attempts)
	}

	var lastErr error
	for n := 1; n <= attempts; n++ {
		lastErr = op(n)
		if lastErr == nil {
			return nil
		}

		if n == attempts {
			break
		}

		if err := sleepFn(ctx, delay(n)); err != nil {
			return err
		}
	}

	return fmt.Errorf("after %d attempt(s): %w", attempts, lastErr)
}
