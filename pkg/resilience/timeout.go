// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// TimeoutConfig controls timeout behavior.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the operation. Zero disables it.
	Duration time.Duration
}

// WithTimeout runs fn with a context derived from ctx and bounded by
// config.Duration. The derived deadline is never later than the caller's.
// Returns errors.CodeTimeout when the local bound fires first and
// errors.CodeCanceled when the caller's context ends first.
func WithTimeout(ctx context.Context, config TimeoutConfig, fn func(ctx context.Context) error) error {
	_, err := WithTimeoutResult(ctx, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithTimeoutResult is WithTimeout for operations returning a value.
func WithTimeoutResult[T any](ctx context.Context, config TimeoutConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if config.Duration <= 0 {
		return fn(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(tctx)
		done <- result{value, err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err == nil {
			return res.value, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, errors.Canceled(err)
		}
		if stderrors.Is(tctx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(config.Duration, res.err)
		}
		return res.value, res.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, errors.Canceled(err)
		}
		return zero, timeoutError(config.Duration, tctx.Err())
	}
}

func timeoutError(d time.Duration, cause error) error {
	return errors.New(errors.CodeTimeout, "operation exceeded timeout", cause).
		WithContext("timeout", d.String())
}
