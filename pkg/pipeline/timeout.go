// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
)

// DefaultStepTimeout bounds a single pipeline execution.
const DefaultStepTimeout = 4 * time.Second

// TimeoutBehavior bounds the continuation with a sub-context derived from
// the caller's. It never extends the caller's deadline.
type TimeoutBehavior struct {
	duration time.Duration
}

// NewTimeoutBehavior creates a timeout behavior; d <= 0 uses DefaultStepTimeout.
func NewTimeoutBehavior(d time.Duration) *TimeoutBehavior {
	if d <= 0 {
		d = DefaultStepTimeout
	}
	return &TimeoutBehavior{duration: d}
}

// Name implements Behavior.
func (b *TimeoutBehavior) Name() string { return "timeout" }

// Handle implements Behavior.
func (b *TimeoutBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	return resilience.WithTimeoutResult(ctx, resilience.TimeoutConfig{Duration: b.duration}, func(ctx context.Context) (any, error) {
		return next(ctx)
	})
}
