package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDo(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	t.Run("returns on first success", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), "op", func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), "op", func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("final error propagates unmasked", func(t *testing.T) {
		wantErr := &BackendError{RunStatus: RunFailed}
		calls := 0
		err := policy.Do(context.Background(), "op", func() error {
			calls++
			return wantErr
		})
		assert.Equal(t, 3, calls)
		assert.Same(t, error(wantErr), err)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{}.Do(context.Background(), "op", func() error {
			calls++
			return errors.New("nope")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := policy.Do(ctx, "op", func() error {
			calls++
			return errors.New("transient")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
