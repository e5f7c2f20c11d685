// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package agents holds the capability-scoped agents, the router that
// dispatches envelopes to them and the listener that feeds the router
// from a transport.
package agents

import (
	"context"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/orchestration"
)

// Agent handles envelopes of the types it is capable of.
type Agent interface {
	Name() string
	CanHandle(t messaging.MessageType) bool
	// Handle drives the agent on env and returns the response envelope,
	// which carries env's correlation id.
	Handle(ctx context.Context, env messaging.Envelope) (messaging.Envelope, error)
}

// Orchestrator runs the reasoning loops agents delegate to.
type Orchestrator interface {
	Reason(ctx context.Context, input string, opts orchestration.LoopOptions) (string, error)
	PlanExecute(ctx context.Context, input string, opts orchestration.LoopOptions) (string, error)
}

var _ Orchestrator = (*orchestration.Orchestrator)(nil)
