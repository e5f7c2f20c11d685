// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

func fastRetry(attempts int) RetryConfig {
	return DefaultRetryConfig().
		WithMaxAttempts(attempts).
		WithInitialDelay(time.Millisecond).
		WithMaxDelay(5 * time.Millisecond)
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	err := fastRetry(3).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return kerrors.Transient("flaky", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := fastRetry(2).Do(context.Background(), func(context.Context) error {
		attempts++
		return kerrors.Transient("always fails", nil)
	})

	assert.True(t, kerrors.Is(err, kerrors.CodeTransient), "expected last transient error, got %v", err)
	assert.Equal(t, 2, attempts)
}

func TestRetryOnlyTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("boom")},
		{"not found", kerrors.NotFound("skill", "x")},
		{"validation", kerrors.New(kerrors.CodeValidation, "bad", nil)},
		{"circuit open", kerrors.New(kerrors.CodeCircuitOpen, "open", nil)},
		{"canceled", context.Canceled},
		{"caller deadline", kerrors.Canceled(context.DeadlineExceeded)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := fastRetry(5).Do(context.Background(), func(context.Context) error {
				attempts++
				return tt.err
			})
			require.Error(t, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithBackoff(func(int) time.Duration { return time.Second })

	attempts := 0
	err := config.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return kerrors.Transient("flaky", nil)
	})

	assert.True(t, kerrors.IsCanceled(err), "expected cancellation, got %v", err)
	assert.Equal(t, 1, attempts)
}

func TestRetryLinearBackoffAndHook(t *testing.T) {
	var delays []time.Duration
	config := fastRetry(3).
		WithBackoff(LinearBackoff(time.Millisecond)).
		WithOnRetry(func(_ int, d time.Duration, _ error) { delays = append(delays, d) })

	_ = config.Do(context.Background(), func(context.Context) error {
		return kerrors.Transient("flaky", nil)
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestCalculateBackoffExponential(t *testing.T) {
	rc := RetryConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, w := range want {
		assert.Equal(t, w, calculateBackoff(i+1, rc), "retry %d", i+1)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", kerrors.Transient("flaky", nil)
		}
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
}

func TestCircuitBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, Name: "test"})

	for i := 0; i < 5; i++ {
		assert.NoError(t, cb.Call(context.Background(), func(context.Context) error { return nil }), "call %d", i)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerOpensAndFailsFast(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, Name: "test"})

	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("failure") })
	}
	require.Equal(t, StateOpen, cb.State())

	err := cb.Call(context.Background(), func(context.Context) error {
		t.Fatalf("should not execute in open state")
		return nil
	})
	assert.True(t, kerrors.Is(err, kerrors.CodeCircuitOpen), "expected CIRCUIT_OPEN, got %v", err)
	assert.False(t, kerrors.IsTransient(err), "circuit open must not be retried")
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
		Name:             "test",
	})
	cb.now = func() time.Time { return now }

	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("fail") })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	_ = cb.Call(context.Background(), func(context.Context) error { return nil })
	assert.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Call(context.Background(), func(context.Context) error { return nil })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	var transitions []CircuitBreakerState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		OnStateChange: func(_ string, _, to CircuitBreakerState) {
			transitions = append(transitions, to)
		},
	})
	cb.now = func() time.Time { return now }

	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("fail") })
	now = now.Add(2 * time.Minute)
	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("still failing") })

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []CircuitBreakerState{StateOpen, StateHalfOpen, StateOpen}, transitions)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	_ = cb.Call(context.Background(), func(context.Context) error { return context.Canceled })
	assert.Equal(t, StateClosed, cb.State(), "cancellation must not trip the breaker")
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Name: "test"})

	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("fail") })
	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Call(context.Background(), func(context.Context) error { return nil }))
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: 20 * time.Millisecond}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, kerrors.Is(err, kerrors.CodeTimeout), "expected TIMEOUT, got %v", err)

	err = WithTimeout(context.Background(), TimeoutConfig{Duration: time.Second}, func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestWithTimeoutNeverExtendsCallerDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	seen := make(chan time.Time, 1)
	err := WithTimeout(parent, TimeoutConfig{Duration: time.Hour}, func(ctx context.Context) error {
		d, _ := ctx.Deadline()
		seen <- d
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	pd, _ := parent.Deadline()
	assert.False(t, (<-seen).After(pd), "derived deadline is later than the caller's")
}

func TestWithTimeoutCallerDeadlineIsCancellation(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WithTimeout(parent, TimeoutConfig{Duration: time.Hour}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, kerrors.Is(err, kerrors.CodeCanceled), "expected CANCELED, got %v", err)
	assert.False(t, kerrors.IsTransient(err))
}

func TestWithTimeoutCallerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, TimeoutConfig{Duration: time.Second}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, kerrors.IsCanceled(err), "expected cancellation, got %v", err)
}

func TestWithTimeoutResult(t *testing.T) {
	v, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: time.Second}, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWithFallback(t *testing.T) {
	primary := func(context.Context) (string, error) { return "", errors.New("primary down") }
	failing := func(context.Context, error) (string, error) { return "", errors.New("secondary down") }
	working := func(_ context.Context, primaryErr error) (string, error) { return "degraded", nil }

	v, err := WithFallback(context.Background(), primary, failing, working)
	require.NoError(t, err)
	assert.Equal(t, "degraded", v)

	_, err = WithFallback(context.Background(), primary, failing)
	ke := kerrors.AsKernelError(err)
	require.NotNil(t, ke)
	assert.NotNil(t, ke.Context["fallback_errors"])
}

func TestWithFallbackDoesNotMaskCancellation(t *testing.T) {
	called := false
	_, err := WithFallback(context.Background(),
		func(context.Context) (string, error) { return "", context.Canceled },
		func(context.Context, error) (string, error) { called = true; return "x", nil },
	)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called, "fallback must not run on cancellation")
}
