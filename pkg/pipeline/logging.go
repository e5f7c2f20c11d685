// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// LoggingBehavior logs the start and end timestamps of every execution.
type LoggingBehavior struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLoggingBehavior creates a logging behavior; nil logger means slog.Default().
func NewLoggingBehavior(logger *slog.Logger) *LoggingBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingBehavior{logger: logger, now: time.Now}
}

// Name implements Behavior.
func (b *LoggingBehavior) Name() string { return "logging" }

// Handle implements Behavior.
func (b *LoggingBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	op := Operation(ctx)
	start := b.now().UTC()
	b.logger.InfoContext(ctx, "pipeline.stage.start",
		slog.String("operation", op),
		slog.Time("started_at", start),
	)

	result, err := next(ctx)

	end := b.now().UTC()
	attrs := []any{
		slog.String("operation", op),
		slog.Time("finished_at", end),
		slog.Duration("duration", end.Sub(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("code", string(errors.CodeOf(err))),
		)
		b.logger.WarnContext(ctx, "pipeline.stage.failed", attrs...)
		return result, err
	}
	b.logger.InfoContext(ctx, "pipeline.stage.end", attrs...)
	return result, nil
}
