package validation

import (
	"context"
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/config"
)

// PollUntil runs check every policy.Interval until it reports done, the
// policy's MaxWait elapses, or ctx is cancelled. It returns whether the
// predicate was satisfied; on timeout the last check error (if any) is
// returned alongside false so callers can report why the wait gave up.
// Errors from individual checks do not stop the loop: a transient probe
// failure is not proof the condition will never hold.
func PollUntil(ctx context.Context, policy config.PollPolicy, check func(context.Context) (bool, error)) (bool, error) {
	deadline := time.Now().Add(policy.MaxWait)

	var lastErr error
	for {
		done, err := check(ctx)
		if err != nil {
			lastErr = err
		} else if done {
			return true, nil
		}

		if time.Now().Add(policy.Interval).After(deadline) {
			return false, lastErr
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(policy.Interval):
		}
	}
}
