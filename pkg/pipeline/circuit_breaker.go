// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// DefaultBreakerConfig opens after 5 consecutive failures for 30 seconds.
func DefaultBreakerConfig(name string) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
		Name:             name,
	}
}

// CircuitBreakerBehavior fails fast while the downstream keeps failing.
type CircuitBreakerBehavior struct {
	breaker *resilience.CircuitBreaker
}

// NewCircuitBreakerBehavior creates a breaker behavior; state changes are logged.
func NewCircuitBreakerBehavior(config resilience.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	user := config.OnStateChange
	config.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
		logger.Warn("pipeline.breaker.transition",
			slog.String("breaker", name),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		if user != nil {
			user(name, from, to)
		}
	}
	return &CircuitBreakerBehavior{breaker: resilience.NewCircuitBreaker(config)}
}

// Name implements Behavior.
func (b *CircuitBreakerBehavior) Name() string { return "circuit_breaker" }

// Breaker exposes the underlying breaker for health reporting.
func (b *CircuitBreakerBehavior) Breaker() *resilience.CircuitBreaker { return b.breaker }

// Handle implements Behavior.
func (b *CircuitBreakerBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	var result any
	err := b.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		result, err = next(ctx)
		return err
	})
	return result, err
}
