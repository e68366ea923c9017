package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 3, Linear(time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesOnNotReady(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 5, Linear(time.Millisecond), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", ErrNotReady
		}
		return "ready", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 3, Linear(time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 0, ErrNotReady
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 3, calls)
}

func TestDo_AbortsOnOtherError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), 5, Linear(time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "a non-retryable error aborts immediately")
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, 3, Linear(time.Hour), func(context.Context) (int, error) {
		return 0, ErrNotReady
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinear(t *testing.T) {
	backoff := Linear(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, backoff(0))
	assert.Equal(t, 300*time.Millisecond, backoff(2))
}

func TestDo_MinimumOneAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 0, Linear(time.Millisecond), func(context.Context) (int, error) {
		calls++
		return 0, ErrNotReady
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
