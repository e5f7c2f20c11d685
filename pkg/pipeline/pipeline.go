// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline composes ordered cross-cutting behaviors around
// asynchronous operations. Behaviors registered first run outermost:
// B1.before, B2.before, ..., op, ..., B2.after, B1.after.
package pipeline

import (
	"context"
	"fmt"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// Handler is the continuation a Behavior wraps.
type Handler func(ctx context.Context) (any, error)

// Behavior is a unit of cross-cutting logic around a continuation.
//
// Handle either calls next and returns its outcome (possibly translated)
// or returns an error without calling next. Only retry-style behaviors
// call next again, and only after a failure they are declared to handle.
type Behavior interface {
	Name() string
	Handle(ctx context.Context, next Handler) (any, error)
}

// BehaviorFunc adapts a function to the Behavior interface.
type BehaviorFunc struct {
	ID string
	Fn func(ctx context.Context, next Handler) (any, error)
}

// Name implements Behavior.
func (b BehaviorFunc) Name() string { return b.ID }

// Handle implements Behavior.
func (b BehaviorFunc) Handle(ctx context.Context, next Handler) (any, error) {
	return b.Fn(ctx, next)
}

// Executor folds an ordered behavior list into a single call chain.
// The list is fixed once the executor is shared; Use is meant for startup.
type Executor struct {
	behaviors []Behavior
}

// NewExecutor creates an executor; registration order is outermost-first.
func NewExecutor(behaviors ...Behavior) *Executor {
	e := &Executor{}
	e.Use(behaviors...)
	return e
}

// Use appends behaviors as the new innermost layers.
func (e *Executor) Use(behaviors ...Behavior) {
	for _, b := range behaviors {
		if b != nil {
			e.behaviors = append(e.behaviors, b)
		}
	}
}

// Behaviors returns a copy of the registered behaviors in order.
func (e *Executor) Behaviors() []Behavior {
	out := make([]Behavior, len(e.behaviors))
	copy(out, e.behaviors)
	return out
}

// Wrap builds B1(B2(...Bn(op))).
func (e *Executor) Wrap(op Handler) Handler {
	next := op
	for i := len(e.behaviors) - 1; i >= 0; i-- {
		b := e.behaviors[i]
		inner := next
		next = func(ctx context.Context) (any, error) {
			return b.Handle(ctx, inner)
		}
	}
	return next
}

// Run executes a fire-and-forget operation through the chain.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := e.Wrap(func(ctx context.Context) (any, error) {
		return nil, op(ctx)
	})(ctx)
	return err
}

// Execute runs a result-producing operation through the chain of e.
func Execute[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	out, err := e.Wrap(func(ctx context.Context) (any, error) {
		return op(ctx)
	})(ctx)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, errors.New(errors.CodeInternal,
			fmt.Sprintf("pipeline produced %T, expected %T", out, zero), nil)
	}
	return v, nil
}

type operationKey struct{}

// WithOperation names the operation flowing through the pipeline for
// logs, spans and metrics.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// Operation returns the operation name attached to ctx, or "anonymous".
func Operation(ctx context.Context) string {
	if name, ok := ctx.Value(operationKey{}).(string); ok && name != "" {
		return name
	}
	return "anonymous"
}
