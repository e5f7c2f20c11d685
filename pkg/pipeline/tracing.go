// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// TracingBehavior opens one span per execution.
type TracingBehavior struct {
	tracer trace.Tracer
}

// NewTracingBehavior uses the global tracer provider.
func NewTracingBehavior() *TracingBehavior {
	return &TracingBehavior{tracer: otel.Tracer("archena/pipeline")}
}

// Name implements Behavior.
func (b *TracingBehavior) Name() string { return "tracing" }

// Handle implements Behavior.
func (b *TracingBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	op := Operation(ctx)
	ctx, span := b.tracer.Start(ctx, "Pipeline.Execute", trace.WithAttributes(
		attribute.String("pipeline.operation", op),
	))
	defer span.End()

	result, err := next(ctx)
	if err != nil {
		ke := errors.AsKernelError(err)
		span.RecordError(err)
		span.SetAttributes(
			attribute.String("error.code", string(ke.Code)),
			attribute.String("error.recoverable", ke.RecoverableString()),
		)
		span.SetStatus(codes.Error, ke.Message)
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}
