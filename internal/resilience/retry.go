package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig parameterizes jittered exponential backoff.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFrac   float64
}

// DefaultLedgerRetryConfig holds 3 attempts with jittered 20-200ms
// backoff for VersionConflict retries; no caller in this module uses it,
// so version conflicts are returned to the caller without a retry.
func DefaultLedgerRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
		JitterFrac:   0.3,
	}
}

// DefaultProviderRetryConfig is used for retrying outbound payment
// provider calls guarded by a CircuitBreaker.
func DefaultProviderRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFrac:   0.3,
	}
}

// Retry invokes fn up to cfg.MaxAttempts times, sleeping a jittered
// exponential backoff between attempts, until fn returns a nil error,
// shouldRetry(err) returns false, or ctx is cancelled.
func Retry(ctx context.Context, cfg RetryConfig, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay, cfg.JitterFrac)):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

func withJitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	jitter := time.Duration(rand.Float64() * frac * float64(d))
	return d + jitter
}
