// SPDX-License-Identifier: Apache-2.0
package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
)

func sampleEvents() []core.Event {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []core.Event{
		{Type: core.EventReasoningStart, RunID: "run-1", CorrelationID: "corr-1", Agent: "sre", Content: "input", Timestamp: ts},
		{Type: core.EventReasoningPass, RunID: "run-1", CorrelationID: "corr-1", Agent: "sre", Iteration: 1, Content: "input", Timestamp: ts},
		{Type: core.EventReasoningFinish, RunID: "run-1", CorrelationID: "corr-1", Agent: "sre", Iteration: 1, Content: "done", Timestamp: ts,
			Metadata: map[string]string{"reason": "pattern"}},
		{Type: core.EventReasoningStart, RunID: "run-2", CorrelationID: "corr-2", Agent: "devops", Content: "other", Timestamp: ts},
	}
}

func journals(t *testing.T) map[string]Journal {
	t.Helper()
	sq, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Journal{
		"memory": NewMemoryJournal(),
		"sqlite": sq,
	}
}

func eventTypes(events []core.Event) []core.EventType {
	var out []core.EventType
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestJournalList(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, e := range sampleEvents() {
				require.NoError(t, j.Emit(ctx, e))
			}

			tests := []struct {
				name   string
				filter Filter
				want   []core.EventType
			}{
				{"by run", Filter{RunID: "run-1"}, []core.EventType{core.EventReasoningStart, core.EventReasoningPass, core.EventReasoningFinish}},
				{"by correlation", Filter{CorrelationID: "corr-2"}, []core.EventType{core.EventReasoningStart}},
				{"by type", Filter{Type: core.EventReasoningStart}, []core.EventType{core.EventReasoningStart, core.EventReasoningStart}},
				{"by agent with limit", Filter{Agent: "sre", Limit: 2}, []core.EventType{core.EventReasoningStart, core.EventReasoningPass}},
				{"no match", Filter{RunID: "missing"}, nil},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := j.List(ctx, tt.filter)
					require.NoError(t, err)
					assert.Equal(t, tt.want, eventTypes(got))
				})
			}
		})
	}
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	want := sampleEvents()[2]
	require.NoError(t, j.Emit(ctx, want))

	got, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, "done", e.Content)
	assert.Equal(t, 1, e.Iteration)
	assert.Equal(t, "sre", e.Agent)
	assert.Equal(t, "corr-1", e.CorrelationID)
	assert.True(t, e.Timestamp.Equal(want.Timestamp), "expected timestamp %v, got %v", want.Timestamp, e.Timestamp)
	assert.Equal(t, "pattern", e.Metadata["reason"])
	assert.NoError(t, j.Ping(ctx))
}
