// SPDX-License-Identifier: Apache-2.0
// Package journal records orchestration lifecycle events so a run can be
// inspected after the fact by run id or message correlation id.
package journal

import (
	"context"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
)

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	RunID         string
	CorrelationID string
	Agent         string
	Type          core.EventType
	Limit         int
}

func (f Filter) match(e core.Event) bool {
	return (f.RunID == "" || e.RunID == f.RunID) &&
		(f.CorrelationID == "" || e.CorrelationID == f.CorrelationID) &&
		(f.Agent == "" || e.Agent == f.Agent) &&
		(f.Type == "" || e.Type == f.Type)
}

// Journal is an EventSink that can be queried.
type Journal interface {
	core.EventSink
	List(ctx context.Context, filter Filter) ([]core.Event, error)
}

// MemoryJournal keeps events in process memory.
type MemoryJournal struct {
	mu     sync.RWMutex
	events []core.Event
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Emit appends event.
func (j *MemoryJournal) Emit(_ context.Context, event core.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

// List returns matching events in emission order.
func (j *MemoryJournal) List(_ context.Context, filter Filter) ([]core.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []core.Event
	for _, e := range j.events {
		if !filter.match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
