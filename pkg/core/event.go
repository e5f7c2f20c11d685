// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"time"
)

// EventType identifies a lifecycle event emitted by an orchestration run.
type EventType string

const (
	EventReasoningStart   EventType = "reasoning.start"
	EventReasoningPass    EventType = "reasoning.pass"
	EventReasoningOutput  EventType = "reasoning.output"
	EventActionExecuted   EventType = "action.executed"
	EventReflection       EventType = "reflection"
	EventCorrection       EventType = "correction"
	EventReasoningFinish  EventType = "reasoning.finish"
	EventReasoningStalled EventType = "reasoning.stalled"
	EventReasoningMaxIter EventType = "reasoning.max_iterations"
	EventPlanning         EventType = "planning"
	EventSummarization    EventType = "summarization"
	EventAgentDispatched  EventType = "agent.dispatched"
	EventAgentResponded   EventType = "agent.responded"
	EventAgentFailed      EventType = "agent.failed"
)

// Terminal reports whether the event ends a reasoning loop.
func (t EventType) Terminal() bool {
	switch t {
	case EventReasoningFinish, EventReasoningStalled, EventReasoningMaxIter:
		return true
	}
	return false
}

// Event captures one step of an orchestration run.
type Event struct {
	Type          EventType         `json:"type"`
	RunID         string            `json:"runId"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Agent         string            `json:"agent,omitempty"`
	Iteration     int               `json:"iteration,omitempty"`
	Content       string            `json:"content"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EventSink receives lifecycle events in emission order.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event) error

// Emit implements EventSink.
func (f EventSinkFunc) Emit(ctx context.Context, event Event) error { return f(ctx, event) }

// NoopEventSink discards events.
type NoopEventSink struct{}

// Emit implements EventSink.
func (NoopEventSink) Emit(context.Context, Event) error { return nil }

// NewEvent builds an event stamped with the run and agent carried by ctx.
func NewEvent(ctx context.Context, eventType EventType, content string) Event {
	runID, _ := RunID(ctx)
	correlationID, _ := CorrelationID(ctx)
	agent, _ := AgentName(ctx)
	return Event{
		Type:          eventType,
		RunID:         runID,
		CorrelationID: correlationID,
		Agent:         agent,
		Content:       content,
		Timestamp:     time.Now().UTC(),
	}
}
