// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package actions holds side-effecting operations that model output can
// request through inline directives, and the planner that executes them.
package actions

import (
	"context"
	"time"
)

// Descriptor describes a registered action. Parameters maps argument names
// to a short description.
type Descriptor struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	RegisteredAt time.Time         `json:"registeredAt"`
}

// Context is what an action sees when it runs.
type Context struct {
	// Input is the full model output that carried the directive.
	Input         string
	Arguments     map[string]any
	CallingAgent  string
	CorrelationID string
}

// Argument returns a string argument, or "" when absent or not a string.
func (c Context) Argument(name string) string {
	s, _ := c.Arguments[name].(string)
	return s
}

// Action is an executable tool available to agents.
type Action interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, ac Context) (any, error)
}

// Func adapts a function into an Action.
type Func struct {
	desc Descriptor
	fn   func(ctx context.Context, ac Context) (any, error)
}

// NewFunc creates a function-backed action.
func NewFunc(name, description string, parameters map[string]string, fn func(ctx context.Context, ac Context) (any, error)) *Func {
	return &Func{
		desc: Descriptor{Name: name, Description: description, Parameters: parameters},
		fn:   fn,
	}
}

// Descriptor implements Action.
func (f *Func) Descriptor() Descriptor { return f.desc }

// Execute implements Action.
func (f *Func) Execute(ctx context.Context, ac Context) (any, error) {
	return f.fn(ctx, ac)
}
