// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// Fallback produces a substitute result after the primary operation failed.
type Fallback[T any] func(ctx context.Context, primaryErr error) (T, error)

// WithFallback runs primary and, on failure, each fallback in order until one
// succeeds. Cancellation is never masked by a fallback. When every fallback
// fails the primary error is returned with the fallback errors attached.
func WithFallback[T any](ctx context.Context, primary func(ctx context.Context) (T, error), fallbacks ...Fallback[T]) (T, error) {
	value, err := primary(ctx)
	if err == nil || errors.IsCanceled(err) || len(fallbacks) == 0 {
		return value, err
	}

	var causes []string
	for _, fb := range fallbacks {
		if ctx.Err() != nil {
			break
		}
		v, fbErr := fb(ctx, err)
		if fbErr == nil {
			return v, nil
		}
		causes = append(causes, fbErr.Error())
	}

	var zero T
	return zero, errors.AsKernelError(err).WithContext("fallback_errors", causes)
}
