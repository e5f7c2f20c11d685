// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// DefaultRetryConfig is two retries spaced 150ms*n, transient failures only.
func DefaultRetryConfig() resilience.RetryConfig {
	return resilience.DefaultRetryConfig().
		WithMaxAttempts(3).
		WithBackoff(resilience.LinearBackoff(150 * time.Millisecond)).
		WithIsRecoverable(errors.IsTransient)
}

// RetryBehavior re-invokes the continuation after transient failures.
type RetryBehavior struct {
	config resilience.RetryConfig
	logger *slog.Logger
}

// NewRetryBehavior creates a retry behavior. The recoverability predicate is
// always errors.IsTransient so other error kinds propagate untouched.
func NewRetryBehavior(config resilience.RetryConfig, logger *slog.Logger) *RetryBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	config.IsRecoverable = errors.IsTransient
	return &RetryBehavior{config: config, logger: logger}
}

// Name implements Behavior.
func (b *RetryBehavior) Name() string { return "retry" }

// Handle implements Behavior.
func (b *RetryBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	op := Operation(ctx)
	cfg := b.config.WithOnRetry(func(retry int, delay time.Duration, err error) {
		b.logger.WarnContext(ctx, "pipeline.retry",
			slog.String("operation", op),
			slog.Int("retry", retry),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	})
	return resilience.DoWithResult(ctx, cfg, func(ctx context.Context) (any, error) {
		return next(ctx)
	})
}
