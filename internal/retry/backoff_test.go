package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpass/internal/reviewerr"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func transientErr(msg string) error {
	return &reviewerr.TransientProviderError{Provider: "test", Reason: msg}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 2, config.MaxRetries)
	assert.Equal(t, 2*time.Second, config.BaseDelay)
	assert.Equal(t, 60*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.Multiplier)
	assert.True(t, config.Jitter)
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(2), zerolog.Nop(), func() error {
		calls++
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
	assert.NoError(t, result.LastError)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(2), zerolog.Nop(), func() error {
		calls++
		if calls < 3 {
			return transientErr("rate limited")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(2), zerolog.Nop(), func() error {
		calls++
		return transientErr("still down")
	})

	assert.False(t, result.Success)
	// Two retries means exactly three attempts, never more.
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)

	var transient *reviewerr.TransientProviderError
	assert.ErrorAs(t, result.LastError, &transient)
}

func TestDoFailsFastOnFatalError(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(5), zerolog.Nop(), func() error {
		calls++
		return &reviewerr.AuthError{Provider: "test", Err: errors.New("bad key")}
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDoZeroRetriesSingleAttempt(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(0), zerolog.Nop(), func() error {
		calls++
		return transientErr("down")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	result := Do(ctx, Config{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}, zerolog.Nop(), func() error {
		calls++
		cancel()
		return transientErr("down")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
	require.Error(t, result.LastError)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}

	assert.Equal(t, time.Second, backoffDelay(cfg, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 2))
	// Capped past the configured maximum.
	assert.Equal(t, 10*time.Second, backoffDelay(cfg, 10))
}

func TestBackoffDelayJitterStaysClose(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2.0, Jitter: true}
	for i := 0; i < 50; i++ {
		d := backoffDelay(cfg, 1)
		assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
		assert.LessOrEqual(t, d, 2200*time.Millisecond)
	}
}

func TestDoNonRetryablePlainError(t *testing.T) {
	calls := 0
	result := Do(context.Background(), fastConfig(3), zerolog.Nop(), func() error {
		calls++
		return errors.New("plain failure")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}
