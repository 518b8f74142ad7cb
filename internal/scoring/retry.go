package scoring

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behaviour for transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// RetryClient is a decorator that retries transient errors with
// exponential backoff and jitter. Submit is safe to retry because the
// boundary deduplicates by attempt ID.
type RetryClient struct {
	inner  Client
	config RetryConfig
}

// WithRetry wraps a Client with retry logic.
func WithRetry(c Client, cfg RetryConfig) Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryClient{inner: c, config: cfg}
}

func (r *RetryClient) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	return retry(ctx, r, func() (*Receipt, error) { return r.inner.Submit(ctx, sub) })
}

func (r *RetryClient) FetchResult(ctx context.Context, attemptID string) (*ScoreSet, error) {
	return retry(ctx, r, func() (*ScoreSet, error) { return r.inner.FetchResult(ctx, attemptID) })
}

func retry[T any](ctx context.Context, r *RetryClient, call func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := range r.config.MaxAttempts {
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}

		// Last attempt: return without sleeping.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return zero, lastErr
}

// shouldRetry determines if an error is retryable.
func shouldRetry(err error) bool {
	// Context errors are never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// A rejection is final and a pending result is not a failure.
	var rej *ErrRejected
	if errors.As(err, &rej) || errors.Is(err, ErrNotAvailable) {
		return false
	}

	// Rate limits, outages and network errors are transient.
	return true
}

// backoff computes the wait duration for the given attempt.
func (r *RetryClient) backoff(attempt int, err error) time.Duration {
	// Respect RetryAfter for rate limits.
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
