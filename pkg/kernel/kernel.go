// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package kernel is the entry point for running skills by name. It binds
// the message correlation id carried by the context to every invocation
// and turns Failure results into errors for string-in, string-out callers
// such as the reasoning orchestrator.
package kernel

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

// ReasoningSkill is the skill Think delegates to.
const ReasoningSkill = "reasoning"

// Kernel runs skills from a registry.
type Kernel struct {
	skills *skills.Registry
	logger *slog.Logger
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the kernel logger.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// New creates a kernel over registry.
func New(registry *skills.Registry, opts ...Option) *Kernel {
	k := &Kernel{skills: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Registry returns the underlying skill registry.
func (k *Kernel) Registry() *skills.Registry { return k.skills }

// Think runs the reasoning skill on input.
func (k *Kernel) Think(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", errors.New(errors.CodeInvalidInput, "think requires non-empty input", nil)
	}
	return k.ExecuteSkill(ctx, ReasoningSkill, input)
}

// ExecuteSkill runs name with a text payload and renders the output as text.
// A Failure result is returned as the error.
func (k *Kernel) ExecuteSkill(ctx context.Context, name, input string) (string, error) {
	out, err := k.ExecutePayload(ctx, name, skills.Text(input))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.String(), nil
}

// ExecutePayload runs name with an arbitrary payload.
func (k *Kernel) ExecutePayload(ctx context.Context, name string, input skills.Payload) (skills.Payload, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "skill name cannot be empty", nil)
	}
	inv := skills.NewInvocation(input)
	if id, ok := core.CorrelationID(ctx); ok {
		inv = inv.WithCorrelationID(id)
	}

	res, err := k.skills.Execute(ctx, name, inv)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		k.logger.Debug("kernel.skill.failure",
			slog.String("skill", name),
			slog.String("correlation_id", inv.CorrelationID),
			slog.String("error", res.Err().Error()),
		)
		return nil, res.Err()
	}
	return res.Output(), nil
}

// ExecuteJSON marshals input, runs name and decodes a JSON output into T.
// A text output is decoded as JSON too, so LLM skills that answer with a
// JSON document can be used directly.
func ExecuteJSON[T any](ctx context.Context, k *Kernel, name string, input any) (T, error) {
	var zero T
	payload, err := skills.JSON(input)
	if err != nil {
		return zero, err
	}
	out, err := k.ExecutePayload(ctx, name, payload)
	if err != nil {
		return zero, err
	}
	if tp, ok := out.(skills.TextPayload); ok {
		out = skills.JSONPayload(strings.TrimSpace(string(tp)))
	}
	var v T
	if err := skills.DecodeJSON(out, &v); err != nil {
		return zero, err
	}
	return v, nil
}
