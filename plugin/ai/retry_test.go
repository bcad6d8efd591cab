package ai

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerr "github.com/lectern/lectern/internal/errors"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Multiplier: 1.5,
		MaxDelay:   15 * time.Second,
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("SucceedsFirstAttempt", func(t *testing.T) {
		calls := 0
		err := fastPolicy(3).Do(ctx, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("RecoversAfterTransientFailures", func(t *testing.T) {
		calls := 0
		err := fastPolicy(3).Do(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("ExhaustionCarriesCode", func(t *testing.T) {
		calls := 0
		err := fastPolicy(2).Do(ctx, func() error {
			calls++
			return errors.New("always fails")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, enginerr.IsCode(err, enginerr.ErrCodeRetriesExhausted))
	})

	t.Run("CancelStopsRetries", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := fastPolicy(5).Do(canceled, func() error {
			return errors.New("fail")
		})
		require.Error(t, err)
		assert.True(t, enginerr.IsCode(err, enginerr.ErrCodeContextCanceled))
	})
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 2 * time.Second, Multiplier: 1.5, MaxDelay: 15 * time.Second}

	assert.Equal(t, 2*time.Second, p.Delay(0))
	assert.Equal(t, 3*time.Second, p.Delay(1))
	assert.Equal(t, 15*time.Second, p.Delay(10)) // capped
}
