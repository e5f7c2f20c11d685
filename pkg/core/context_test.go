// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	assert.Len(t, id, 32)
	_, again := EnsureRunID(ctx)
	assert.Equal(t, id, again, "existing run id is kept")
}

func TestNewEventCarriesContext(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithCorrelationID(ctx, "corr-1")
	ctx = WithAgentName(ctx, "sre")

	ev := NewEvent(ctx, EventReasoningStart, "hello")
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "sre", ev.Agent)
	assert.Equal(t, EventReasoningStart, ev.Type)
	assert.Equal(t, "hello", ev.Content)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEventTypeTerminal(t *testing.T) {
	tests := []struct {
		typ  EventType
		want bool
	}{
		{EventReasoningFinish, true},
		{EventReasoningStalled, true},
		{EventReasoningMaxIter, true},
		{EventReasoningPass, false},
		{EventPlanning, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Terminal(), string(tt.typ))
	}
}
