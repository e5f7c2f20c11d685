// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"log/slog"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// Options selects the standard behaviors installed by NewDefault.
type Options struct {
	Logger            *slog.Logger
	EnableTracing     bool
	EnableMetrics     bool
	EnableResilience  bool
	StepTimeout       time.Duration
	BreakerThreshold  int
	BreakerOpenPeriod time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	// OnBreakerChange observes circuit transitions of the resilience behavior.
	OnBreakerChange func(name string, from, to resilience.CircuitBreakerState)
}

// NewDefault builds the standard chain, outermost first:
// tracing, metrics, logging, then either the composite resilience
// behavior or retry around timeout.
func NewDefault(opts Options) (*Executor, error) {
	e := NewExecutor()
	if opts.EnableTracing {
		e.Use(NewTracingBehavior())
	}
	if opts.EnableMetrics {
		m, err := NewMetricsBehavior()
		if err != nil {
			return nil, err
		}
		e.Use(m)
	}
	e.Use(NewLoggingBehavior(opts.Logger))

	if opts.EnableResilience {
		cfg := DefaultResilienceConfig()
		if opts.BreakerThreshold > 0 {
			cfg.Breaker.FailureThreshold = opts.BreakerThreshold
		}
		if opts.BreakerOpenPeriod > 0 {
			cfg.Breaker.Timeout = opts.BreakerOpenPeriod
		}
		if opts.RetryAttempts > 0 {
			cfg.Retry = cfg.Retry.WithMaxAttempts(opts.RetryAttempts)
		}
		if opts.RetryDelay > 0 {
			cfg.Retry = cfg.Retry.WithInitialDelay(opts.RetryDelay)
		}
		if opts.StepTimeout > 0 {
			cfg.Timeout = opts.StepTimeout
		}
		cfg.Breaker.OnStateChange = opts.OnBreakerChange
		e.Use(NewResilienceBehavior(cfg, opts.Logger))
		return e, nil
	}

	retry := DefaultRetryConfig()
	if opts.RetryAttempts > 0 {
		retry = retry.WithMaxAttempts(opts.RetryAttempts)
	}
	if opts.RetryDelay > 0 {
		retry = retry.WithInitialDelay(opts.RetryDelay)
	}
	e.Use(NewRetryBehavior(retry, opts.Logger), NewTimeoutBehavior(opts.StepTimeout))
	return e, nil
}
