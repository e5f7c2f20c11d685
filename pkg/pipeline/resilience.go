// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// ResilienceConfig combines the three policies of ResilienceBehavior.
type ResilienceConfig struct {
	Breaker resilience.CircuitBreakerConfig
	Retry   resilience.RetryConfig
	Timeout time.Duration
}

// DefaultResilienceConfig is breaker 5/30s around 3 exponential retries
// (200ms, 400ms, 800ms) around a 10s per-attempt timeout.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Breaker: DefaultBreakerConfig("resilience"),
		Retry: resilience.DefaultRetryConfig().
			WithMaxAttempts(4).
			WithInitialDelay(200 * time.Millisecond).
			WithMaxDelay(5 * time.Second),
		Timeout: 10 * time.Second,
	}
}

// ResilienceBehavior wraps the continuation in breaker(retry(timeout(next))).
type ResilienceBehavior struct {
	breaker *CircuitBreakerBehavior
	retry   *RetryBehavior
	timeout *TimeoutBehavior
}

// NewResilienceBehavior creates the composite behavior.
func NewResilienceBehavior(config ResilienceConfig, logger *slog.Logger) *ResilienceBehavior {
	return &ResilienceBehavior{
		breaker: NewCircuitBreakerBehavior(config.Breaker, logger),
		retry:   NewRetryBehavior(config.Retry, logger),
		timeout: NewTimeoutBehavior(config.Timeout),
	}
}

// Name implements Behavior.
func (b *ResilienceBehavior) Name() string { return "resilience" }

// Handle implements Behavior.
func (b *ResilienceBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	return NewExecutor(b.breaker, b.retry, b.timeout).Wrap(next)(ctx)
}
