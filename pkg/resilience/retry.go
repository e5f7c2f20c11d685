// SPDX-License-Identifier: Apache-2.0
// Package resilience provides retry, timeout, circuit breaker and fallback
// primitives used by the pipeline behaviors and the model connector.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (must be >= 1).
	MaxAttempts int

	// InitialDelay is the initial backoff delay.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Multiplier for exponential backoff (default 2.0).
	Multiplier float64

	// Backoff overrides the exponential schedule when set.
	// It receives the 1-based number of the retry about to happen.
	Backoff func(retry int) time.Duration

	// IsRecoverable determines if an error should be retried.
	// If nil, errors.IsTransient is used.
	IsRecoverable func(error) bool

	// Jitter adds randomness to backoff; 0.1 means ±10%.
	Jitter float64

	// OnRetry is invoked before each backoff wait.
	OnRetry func(retry int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the default exponential schedule:
// 3 attempts, 100ms doubling, capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: errors.IsTransient,
	}
}

// LinearBackoff returns a schedule of step*n for the n-th retry.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		return step * time.Duration(retry)
	}
}

// WithMaxAttempts returns a new config with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

// WithInitialDelay returns a new config with InitialDelay set.
func (rc RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	rc.InitialDelay = d
	return rc
}

// WithMaxDelay returns a new config with MaxDelay set.
func (rc RetryConfig) WithMaxDelay(d time.Duration) RetryConfig {
	rc.MaxDelay = d
	return rc
}

// WithBackoff returns a new config with a custom backoff schedule.
func (rc RetryConfig) WithBackoff(fn func(int) time.Duration) RetryConfig {
	rc.Backoff = fn
	return rc
}

// WithIsRecoverable returns a new config with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// WithOnRetry returns a new config with an OnRetry hook.
func (rc RetryConfig) WithOnRetry(fn func(int, time.Duration, error)) RetryConfig {
	rc.OnRetry = fn
	return rc
}

// Do executes fn with retry logic, returning the last error if all attempts fail.
// Non-recoverable errors and cancellation are returned immediately.
func (rc RetryConfig) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = errors.IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := rc.delay(attempt)
			if rc.OnRetry != nil {
				rc.OnRetry(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.New(errors.CodeCanceled, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt).
					WithContext("max_attempts", rc.MaxAttempts)
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.IsCanceled(err) || !rc.IsRecoverable(err) {
			return err
		}
	}

	return lastErr
}

// DoWithResult executes fn with retry logic, returning both result and error.
func DoWithResult[T any](ctx context.Context, rc RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := rc.Do(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

func (rc RetryConfig) delay(retry int) time.Duration {
	if rc.Backoff != nil {
		return rc.Backoff(retry)
	}
	return calculateBackoff(retry, rc)
}

// calculateBackoff computes initialDelay * multiplier^(retry-1) with jitter.
func calculateBackoff(retry int, rc RetryConfig) time.Duration {
	if rc.Multiplier == 0 {
		rc.Multiplier = 2.0
	}

	d := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(retry-1)))
	if rc.MaxDelay > 0 && d > rc.MaxDelay {
		d = rc.MaxDelay
	}

	if rc.Jitter > 0 {
		spread := float64(d) * rc.Jitter
		d = time.Duration(float64(d) + 2*spread*(rand.Float64()-0.5))
		if d < 0 {
			d = 0
		}
	}

	return d
}
