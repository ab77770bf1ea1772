// internal/analytics/retry_test.go
package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// scriptedFetch returns the given errors in order, then succeeds.
func scriptedFetch(errs ...error) (func(context.Context) (*Events, error), *int) {
	calls := 0
	return func(context.Context) (*Events, error) {
		calls++
		if calls <= len(errs) {
			return nil, errs[calls-1]
		}
		return NewEvents([]Event{{Name: "ok"}}, 0), nil
	}, &calls
}

func TestFetchWithRetry(t *testing.T) {
	transient := &NetworkError{StatusCode: 503, Err: errors.New("unavailable")}

	t.Run("DefaultIsSingleAttempt", func(t *testing.T) {
		fetch, calls := scriptedFetch(transient)
		_, err := FetchWithRetry(context.Background(), fetch, RetryPolicy{})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, *calls)
	})

	t.Run("RetriesNetworkErrors", func(t *testing.T) {
		fetch, calls := scriptedFetch(transient, transient)
		events, err := FetchWithRetry(context.Background(), fetch, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, 1, events.Len())
		assert.Equal(t, 3, *calls)
	})

	t.Run("GivesUpAfterMaxAttempts", func(t *testing.T) {
		fetch, calls := scriptedFetch(transient, transient, transient)
		_, err := FetchWithRetry(context.Background(), fetch, RetryPolicy{MaxAttempts: 2})
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, 2, *calls)
	})

	t.Run("NeverRetriesAuthentication", func(t *testing.T) {
		fetch, calls := scriptedFetch(&AuthenticationError{StatusCode: 401})
		_, err := FetchWithRetry(context.Background(), fetch, RetryPolicy{MaxAttempts: 5})
		var authErr *AuthenticationError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, 1, *calls)
	})

	t.Run("NeverRetriesParseErrors", func(t *testing.T) {
		fetch, calls := scriptedFetch(&ParseError{Err: errors.New("x")})
		_, err := FetchWithRetry(context.Background(), fetch, RetryPolicy{MaxAttempts: 5})
		require.Error(t, err)
		assert.Equal(t, 1, *calls)
	})

	t.Run("StopsWaitingOnCancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		fetch := func(context.Context) (*Events, error) {
			calls++
			cancel()
			return nil, transient
		}
		start := time.Now()
		_, err := FetchWithRetry(ctx, fetch, RetryPolicy{MaxAttempts: 3, Delay: time.Hour})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), time.Minute)
	})
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.RetryConfig{MaxAttempts: 4, Delay: 2 * time.Second})
	assert.Equal(t, RetryPolicy{MaxAttempts: 4, Delay: 2 * time.Second}, p)
}
