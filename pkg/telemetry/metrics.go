// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// Circuit states as recorded by RecordCircuitBreakerState.
const (
	CircuitOpen     int64 = 0
	CircuitHalfOpen int64 = 1
	CircuitClosed   int64 = 2
)

// ErrorMetrics counts kernel errors and tracks breaker state per component.
type ErrorMetrics struct {
	errors  metric.Int64Counter
	dropped metric.Int64Counter
	breaker metric.Int64Gauge
}

// NewErrorMetrics registers the instruments on the global meter provider.
func NewErrorMetrics() (*ErrorMetrics, error) {
	meter := otel.Meter("archena/errors")

	errCounter, err := meter.Int64Counter(
		"archena.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		"archena.envelopes.dropped",
		metric.WithDescription("Envelopes no agent could handle, by type"),
	)
	if err != nil {
		return nil, err
	}

	breaker, err := meter.Int64Gauge(
		"archena.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state per component (0=open, 1=half-open, 2=closed)"),
	)
	if err != nil {
		return nil, err
	}

	return &ErrorMetrics{errors: errCounter, dropped: dropped, breaker: breaker}, nil
}

// RecordError counts err under its kernel error code. Nil receivers and
// nil errors are ignored.
func (em *ErrorMetrics) RecordError(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}
	ke := errors.AsKernelError(err)
	em.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(ke.Code)),
		attribute.String("component", component),
		attribute.String("recoverable", ke.RecoverableString()),
	))
}

// RecordDropped counts an envelope that matched no agent.
func (em *ErrorMetrics) RecordDropped(ctx context.Context, envelopeType string) {
	if em == nil {
		return
	}
	em.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("envelope.type", envelopeType)))
}

// RecordCircuitBreakerState records one of CircuitOpen, CircuitHalfOpen or CircuitClosed.
func (em *ErrorMetrics) RecordCircuitBreakerState(ctx context.Context, component string, state int64) {
	if em == nil {
		return
	}
	em.breaker.Record(ctx, state, metric.WithAttributes(attribute.String("component", component)))
}
