// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"context"
	"log/slog"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
)

// BusListener feeds envelopes from a transport topic into a router.
type BusListener struct {
	transport messaging.Transport
	router    *Router
	topic     string
	logger    *slog.Logger
}

// NewBusListener listens on topic; empty means messaging.TopicRequests.
func NewBusListener(t messaging.Transport, router *Router, topic string, logger *slog.Logger) *BusListener {
	if topic == "" {
		topic = messaging.TopicRequests
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BusListener{transport: t, router: router, topic: topic, logger: logger}
}

// Topic returns the subscribed topic.
func (l *BusListener) Topic() string { return l.topic }

// Start subscribes and routes until ctx is done.
func (l *BusListener) Start(ctx context.Context) error {
	l.logger.Info("listener.start", slog.String("topic", l.topic))
	return l.transport.Subscribe(ctx, l.topic, l.handle)
}

// handle drops malformed messages; they are logged, never retried.
func (l *BusListener) handle(ctx context.Context, msg []byte) error {
	env, err := messaging.Decode(msg)
	if err != nil {
		l.logger.Warn("listener.message.malformed", slog.String("topic", l.topic), slog.String("error", err.Error()))
		return nil
	}
	_, err = l.router.Route(ctx, env)
	return err
}
