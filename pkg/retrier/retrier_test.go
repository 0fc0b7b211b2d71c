package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures backoff delays instead of sleeping.
func recordingSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDo(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		e := New()
		attempts := 0
		err := e.Do(context.Background(), "op", func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		var delays []time.Duration
		e := New(WithMaxAttempts(4), WithInitialDelay(time.Millisecond), WithSleep(recordingSleep(&delays)))
		attempts := 0
		err := e.Do(context.Background(), "op", func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("fail")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("always failing op exhausts exactly max attempts with doubling delays", func(t *testing.T) {
		var delays []time.Duration
		e := New(WithMaxAttempts(4), WithInitialDelay(10*time.Millisecond), WithSleep(recordingSleep(&delays)))
		attempts := 0
		err := e.Do(context.Background(), "flaky", func(ctx context.Context) error {
			attempts++
			return errors.New("fail")
		})
		assert.Equal(t, 4, attempts)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, "flaky", exhausted.Name)
		assert.Equal(t, 4, exhausted.Attempts)
		assert.EqualError(t, exhausted.Err, "fail")

		// pure exponential: d, 2d, 4d
		assert.Equal(t, []time.Duration{
			10 * time.Millisecond,
			20 * time.Millisecond,
			40 * time.Millisecond,
		}, delays)
	})

	t.Run("permanent failure stops immediately", func(t *testing.T) {
		var delays []time.Duration
		e := New(WithMaxAttempts(5), WithSleep(recordingSleep(&delays)))
		attempts := 0
		boom := errors.New("bad request")
		err := e.Do(context.Background(), "op", func(ctx context.Context) error {
			attempts++
			return Permanent(boom)
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, delays)

		var exhausted *ExhaustedError
		assert.False(t, errors.As(err, &exhausted))
	})

	t.Run("context cancellation aborts backoff", func(t *testing.T) {
		e := New(WithMaxAttempts(5), WithInitialDelay(time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := e.Do(ctx, "op", func(ctx context.Context) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})

	t.Run("per-attempt timeout consumes one retry", func(t *testing.T) {
		var delays []time.Duration
		e := New(
			WithMaxAttempts(2),
			WithInitialDelay(time.Millisecond),
			WithPerAttemptTimeout(5*time.Millisecond),
			WithSleep(recordingSleep(&delays)),
		)
		attempts := 0
		err := e.Do(context.Background(), "slow", func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				<-ctx.Done() // first attempt hangs until the attempt deadline
				return ctx.Err()
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Len(t, delays, 1)
	})
}

func TestDoWithData(t *testing.T) {
	t.Run("success returns data", func(t *testing.T) {
		e := New()
		val, err := DoWithData(e, context.Background(), "op", func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "ok", val)
	})

	t.Run("exhaustion returns zero value and typed error", func(t *testing.T) {
		var delays []time.Duration
		e := New(WithMaxAttempts(2), WithSleep(recordingSleep(&delays)))
		val, err := DoWithData(e, context.Background(), "op", func(ctx context.Context) (int, error) {
			return 0, errors.New("fail")
		})
		assert.Zero(t, val)
		var exhausted *ExhaustedError
		assert.ErrorAs(t, err, &exhausted)
	})
}
