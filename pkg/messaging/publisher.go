// SPDX-License-Identifier: Apache-2.0
package messaging

import (
	"context"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
)

// EventPublisher publishes lifecycle events as semantic messages.
type EventPublisher struct {
	transport Transport
	topic     string
}

var _ core.EventSink = (*EventPublisher)(nil)

// NewEventPublisher publishes on topic; empty means TopicEvents.
func NewEventPublisher(t Transport, topic string) *EventPublisher {
	if topic == "" {
		topic = TopicEvents
	}
	return &EventPublisher{transport: t, topic: topic}
}

// Topic returns the destination topic.
func (p *EventPublisher) Topic() string { return p.topic }

// Emit implements core.EventSink.
func (p *EventPublisher) Emit(ctx context.Context, ev core.Event) error {
	return p.Publish(ctx, FromEvent(ev))
}

// Publish sends an arbitrary semantic message.
func (p *EventPublisher) Publish(ctx context.Context, m SemanticMessage) error {
	data, err := EncodeSemantic(m)
	if err != nil {
		return err
	}
	return p.transport.Publish(ctx, p.topic, data)
}
