// SPDX-License-Identifier: Apache-2.0
package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *collector) handle(_ context.Context, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func subscribe(t *testing.T, bus *InMemoryBus, topic string, h Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	before := bus.Subscribers(topic)
	done := make(chan error, 1)
	go func() { done <- bus.Subscribe(ctx, topic, h) }()
	require.Eventually(t, func() bool { return bus.Subscribers(topic) > before }, time.Second, time.Millisecond)
	return cancel, done
}

func TestBusFanOut(t *testing.T) {
	bus := NewInMemoryBus()
	a, b := &collector{}, &collector{}
	cancelA, _ := subscribe(t, bus, "t", a.handle)
	defer cancelA()
	cancelB, _ := subscribe(t, bus, "t", b.handle)
	defer cancelB()

	require.NoError(t, bus.Publish(context.Background(), "t", []byte("hello")))
	require.NoError(t, bus.Publish(context.Background(), "other", []byte("ignored")))

	require.Eventually(t, func() bool { return a.len() == 1 && b.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "hello", string(a.msgs[0]))
}

func TestBusSubscribeStopsOnCancel(t *testing.T) {
	bus := NewInMemoryBus()
	cancel, done := subscribe(t, bus, "t", (&collector{}).handle)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
	assert.Equal(t, 0, bus.Subscribers("t"))
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewInMemoryBus(WithBufferSize(1))
	release := make(chan struct{})
	var got collector
	cancel, _ := subscribe(t, bus, "t", func(ctx context.Context, msg []byte) error {
		<-release
		return got.handle(ctx, msg)
	})
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), "t", []byte{byte(i)}))
	}
	close(release)

	require.Eventually(t, func() bool { return got.len() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Less(t, got.len(), 5, "a full subscriber must miss messages instead of blocking publishers")
}

func TestBusHandlerErrorKeepsSubscription(t *testing.T) {
	bus := NewInMemoryBus()
	var calls collector
	cancel, _ := subscribe(t, bus, "t", func(ctx context.Context, msg []byte) error {
		_ = calls.handle(ctx, msg)
		return errors.New(errors.CodeInternal, "boom", nil)
	})
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), "t", []byte("1")))
	require.NoError(t, bus.Publish(context.Background(), "t", []byte("2")))
	require.Eventually(t, func() bool { return calls.len() == 2 }, time.Second, time.Millisecond)
}

func TestBusClose(t *testing.T) {
	bus := NewInMemoryBus()
	_, done := subscribe(t, bus, "t", (&collector{}).handle)
	require.NoError(t, bus.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after close")
	}
	err := bus.Publish(context.Background(), "t", []byte("x"))
	assert.True(t, errors.Is(err, errors.CodeTransportError))
	assert.NoError(t, bus.Close(), "close is idempotent")
}

func TestBusPublishCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewInMemoryBus().Publish(ctx, "t", []byte("x"))
	assert.True(t, errors.IsCanceled(err))
}

func TestEventPublisher(t *testing.T) {
	bus := NewInMemoryBus()
	var got collector
	cancel, _ := subscribe(t, bus, TopicEvents, got.handle)
	defer cancel()

	pub := NewEventPublisher(bus, "")
	assert.Equal(t, TopicEvents, pub.Topic())

	ctx := core.WithAgentName(core.WithCorrelationID(core.WithRunID(context.Background(), "run-1"), "corr-1"), "sre")
	ev := core.NewEvent(ctx, core.EventReasoningFinish, "done")
	ev.Iteration = 2
	ev.Metadata = map[string]string{"reason": "pattern"}
	require.NoError(t, pub.Emit(ctx, ev))

	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	msg, err := DecodeSemantic(got.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "reasoning.finish", msg.Type)
	assert.Equal(t, "done", msg.Content)
	assert.Equal(t, SourceKernel, msg.Source)
	assert.Equal(t, "run-1", msg.Metadata["runId"])
	assert.Equal(t, "corr-1", msg.Metadata["correlationId"])
	assert.Equal(t, "sre", msg.Metadata["agent"])
	assert.Equal(t, "2", msg.Metadata["iteration"])
	assert.Equal(t, "pattern", msg.Metadata["reason"])
	assert.NotEmpty(t, msg.ID)
}

func TestSkillInvocationMessage(t *testing.T) {
	m := NewSkillInvocation("reasoning", "why?", "c-9", "aras")
	data, err := EncodeSemantic(m)
	require.NoError(t, err)

	decoded, err := DecodeSemantic(data)
	require.NoError(t, err)
	assert.Equal(t, TypeSkillInvocation, decoded.Type)
	assert.Equal(t, "reasoning", decoded.Metadata["skill"])
	assert.Equal(t, "c-9", decoded.Metadata["correlationId"])
	assert.Equal(t, "aras", decoded.Metadata["agent"])
	assert.WithinDuration(t, m.Timestamp, decoded.Timestamp, time.Millisecond)
}
