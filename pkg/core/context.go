// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type runIDKey struct{}
type correlationIDKey struct{}
type agentKey struct{}

// WithRunID attaches a run id to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id if present.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// EnsureRunID ensures a run id exists in the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id, ok := RunID(ctx); ok && id != "" {
		return ctx, id
	}
	id := NewID()
	return WithRunID(ctx, id), id
}

// WithCorrelationID attaches the message-level correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the message-level correlation id if present.
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok
}

// WithAgentName attaches the name of the agent handling the request.
func WithAgentName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, agentKey{}, name)
}

// AgentName returns the agent name if present.
func AgentName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(agentKey{}).(string)
	return name, ok
}

// NewID returns a random 32 character hex id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
