// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills defines named, stateless units of work and the registry
// that executes them through the pipeline.
package skills

import "context"

// Skill is a named unit of work.
//
// Execute returns an error for infrastructure failures (transport, timeout)
// so pipeline behaviors can classify and retry them, and a Failure result
// for domain-level rejections that must reach the caller verbatim.
type Skill interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, inv Invocation) (Result, error)
}

// Func adapts a function into a Skill.
type Func struct {
	desc Descriptor
	fn   func(ctx context.Context, inv Invocation) (Result, error)
}

// NewFunc creates a function-backed skill.
func NewFunc(desc Descriptor, fn func(ctx context.Context, inv Invocation) (Result, error)) *Func {
	return &Func{desc: desc, fn: fn}
}

// Descriptor implements Skill.
func (f *Func) Descriptor() Descriptor { return f.desc }

// Execute implements Skill.
func (f *Func) Execute(ctx context.Context, inv Invocation) (Result, error) {
	return f.fn(ctx, inv)
}
