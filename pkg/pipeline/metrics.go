// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// MetricsBehavior records execution counts, durations and errors.
type MetricsBehavior struct {
	executions metric.Int64Counter
	failures   metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetricsBehavior registers the pipeline instruments on the global meter provider.
func NewMetricsBehavior() (*MetricsBehavior, error) {
	meter := otel.Meter("archena/pipeline")

	executions, err := meter.Int64Counter(
		"archena.pipeline.executions",
		metric.WithDescription("Pipeline executions by operation"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"archena.pipeline.errors",
		metric.WithDescription("Failed pipeline executions by operation and error code"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"archena.pipeline.duration",
		metric.WithDescription("Pipeline execution duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsBehavior{executions: executions, failures: failures, duration: duration}, nil
}

// Name implements Behavior.
func (b *MetricsBehavior) Name() string { return "metrics" }

// Handle implements Behavior.
func (b *MetricsBehavior) Handle(ctx context.Context, next Handler) (any, error) {
	op := attribute.String("operation", Operation(ctx))
	start := time.Now()

	result, err := next(ctx)

	b.executions.Add(ctx, 1, metric.WithAttributes(op))
	b.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, metric.WithAttributes(op))
	if err != nil {
		b.failures.Add(ctx, 1, metric.WithAttributes(op,
			attribute.String("error.code", string(errors.CodeOf(err))),
		))
	}
	return result, err
}
