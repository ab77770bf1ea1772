// internal/analytics/retry.go
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// RetryPolicy is a fixed-delay retry budget for transient failures.
type RetryPolicy struct {
	// MaxAttempts counts the first try; values below 1 mean 1.
	MaxAttempts int
	Delay       time.Duration
}

func RetryPolicyFromConfig(c config.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: c.MaxAttempts, Delay: c.Delay}
}

// FetchWithRetry calls fetch until it succeeds, fails with anything other
// than a *NetworkError, or the attempts run out.
func FetchWithRetry(ctx context.Context, fetch func(context.Context) (*Events, error), policy RetryPolicy) (*Events, error) {
	attempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		events, err := fetch(ctx)
		if err == nil {
			return events, nil
		}
		lastErr = err

		var netErr *NetworkError
		if !errors.As(err, &netErr) || attempt == attempts || ctx.Err() != nil {
			return nil, err
		}
		if err := wait(ctx, policy.Delay); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
