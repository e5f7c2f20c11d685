// SPDX-License-Identifier: Apache-2.0
package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// DefaultBufferSize is the per-subscriber queue length of an InMemoryBus.
const DefaultBufferSize = 64

// InMemoryBus is an in-process Transport. Every subscriber of a topic gets
// its own copy of each message, delivered on the subscriber's goroutine.
// A subscriber whose queue is full misses the message.
type InMemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	closed bool
	done   chan struct{}

	buffer int
	logger *slog.Logger
}

type subscriber struct {
	ch chan []byte
}

var _ Transport = (*InMemoryBus)(nil)

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) BusOption {
	return func(b *InMemoryBus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithBusLogger sets the bus logger.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *InMemoryBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewInMemoryBus creates an open bus.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	b := &InMemoryBus{
		topics: make(map[string]map[*subscriber]struct{}),
		done:   make(chan struct{}),
		buffer: DefaultBufferSize,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements Transport. It never blocks on slow subscribers.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New(errors.CodeTransportError, "bus is closed", nil).WithContext("topic", topic)
	}
	for sub := range b.topics[topic] {
		data := append([]byte(nil), msg...)
		select {
		case sub.ch <- data:
		default:
			b.logger.Warn("bus.message.dropped", slog.String("topic", topic), slog.Int("size", len(msg)))
		}
	}
	return nil
}

// Subscribe implements Transport.
func (b *InMemoryBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if handler == nil {
		return errors.New(errors.CodeInvalidInput, "handler is nil", nil)
	}
	sub := &subscriber{ch: make(chan []byte, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New(errors.CodeTransportError, "bus is closed", nil).WithContext("topic", topic)
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*subscriber]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()

	defer b.unsubscribe(topic, sub)
	b.logger.Debug("bus.subscribe", slog.String("topic", topic))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case msg := <-sub.ch:
			if err := handler(ctx, msg); err != nil {
				b.logger.Warn("bus.handler.failed", slog.String("topic", topic), slog.String("error", err.Error()))
			}
		}
	}
}

func (b *InMemoryBus) unsubscribe(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics[topic], sub)
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Subscribers returns the number of active subscribers of topic.
func (b *InMemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close stops every subscription. Publishing afterwards fails.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}
