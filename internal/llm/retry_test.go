package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), "generate", IsTransient, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), "generate", IsTransient, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &ServiceError{Kind: KindTransient, StatusCode: 429, Err: errors.New("rate limited")}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "generate", IsTransient, func() (string, error) {
		calls++
		return "", &ServiceError{Kind: KindPermanent, StatusCode: 401, Err: errors.New("bad key")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsTransient(err) && calls > 1)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "generate", IsTransient, func() (string, error) {
		calls++
		return "", &ServiceError{Kind: KindTransient, StatusCode: 503, Err: errors.New("overloaded")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.True(t, IsTransient(err))
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseBackoff: time.Second, MaxBackoff: time.Second}, "generate", IsTransient, func() (string, error) {
		calls++
		cancel()
		return "", &ServiceError{Kind: KindTransient, StatusCode: 429, Err: errors.New("rate limited")}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsTransientWrapped(t *testing.T) {
	err := &ServiceError{Kind: KindTransient, StatusCode: 429, Err: errors.New("rate limited")}
	assert.True(t, IsTransient(errors.Join(errors.New("outer"), err)))
	assert.False(t, IsTransient(errors.New("plain")))
}
