// Package retry executes provider calls with exponential backoff. Only
// transient provider errors are retried; everything else fails fast.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/reviewpass/internal/reviewerr"
)

// Config configures exponential backoff behavior.
type Config struct {
	MaxRetries int           `json:"max_retries"` // retries after the first attempt
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
	Multiplier float64       `json:"multiplier"`
	Jitter     bool          `json:"jitter"` // up to ±10% random spread on each delay
}

// DefaultConfig returns the backoff settings used for pass execution:
// two retries per pass, so three attempts total.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Result describes how an operation concluded across attempts.
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
}

// Do runs operation with backoff. A transient provider error triggers a
// retry until MaxRetries is exhausted; a fatal error or context cancellation
// returns immediately. At most 1+MaxRetries attempts are made.
func Do(ctx context.Context, config Config, logger zerolog.Logger, operation func() error) Result {
	start := time.Now()
	result := Result{}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(start)
			if attempt > 0 {
				logger.Info().Int("retries", attempt).Dur("total", result.TotalDuration).
					Msg("Operation succeeded after retries")
			}
			return result
		}

		result.LastError = err

		if !reviewerr.IsRetryable(err) {
			result.TotalDuration = time.Since(start)
			logger.Warn().Err(err).Msg("Non-retryable error, failing fast")
			return result
		}
		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(start)
			logger.Warn().Err(err).Int("attempts", result.Attempts).
				Msg("Retries exhausted")
			return result
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		}

		delay := backoffDelay(config, attempt)
		logger.Info().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxRetries+1).
			Dur("delay", delay).
			Msg("Transient provider error, backing off")

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		case <-time.After(delay):
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// backoffDelay computes baseDelay * multiplier^attempt, capped at MaxDelay,
// with optional jitter to spread concurrent independent runs.
func backoffDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}
