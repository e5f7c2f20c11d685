// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/journal"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	name  string
	types []messaging.MessageType
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) CanHandle(t messaging.MessageType) bool {
	for _, c := range s.types {
		if c == t {
			return true
		}
	}
	return false
}

func (s *stubAgent) Handle(ctx context.Context, env messaging.Envelope) (messaging.Envelope, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return messaging.Envelope{}, ctx.Err()
		}
	}
	if s.err != nil {
		return messaging.Envelope{}, s.err
	}
	return env.Reply(messaging.MessageResponse, s.name, "handled by "+s.name), nil
}

func TestRouteDirectIgnoresCapabilities(t *testing.T) {
	x := &stubAgent{name: "x", types: []messaging.MessageType{messaging.MessageIncident}}
	y := &stubAgent{name: "y", types: []messaging.MessageType{messaging.MessageIncident}}
	r := NewRouter()
	r.MustRegister(x, y)

	d, err := r.Route(context.Background(), messaging.NewEnvelope(messaging.MessageIncident, "X", "p"))
	require.NoError(t, err)
	r.Wait()

	assert.Equal(t, ModeDirect, d.Mode)
	assert.Equal(t, int32(1), x.calls.Load())
	assert.Equal(t, int32(0), y.calls.Load())
	require.NotNil(t, d.Response)
	assert.Equal(t, "handled by x", d.Response.Payload)
}

func TestRouteUnknownTargetFallsBackToCapability(t *testing.T) {
	sre := &stubAgent{name: "sre", types: []messaging.MessageType{messaging.MessageIncident}}
	r := NewRouter()
	r.MustRegister(sre)

	d, err := r.Route(context.Background(), messaging.NewEnvelope(messaging.MessageIncident, "ghost", "p"))
	require.NoError(t, err)
	assert.Equal(t, ModeCapability, d.Mode)
	assert.Equal(t, []string{"sre"}, d.Agents)
	assert.Equal(t, int32(1), sre.calls.Load())
}

func TestRouteBroadcastDoesNotWait(t *testing.T) {
	a := &stubAgent{name: "a", types: []messaging.MessageType{messaging.MessageRequest}, delay: 50 * time.Millisecond}
	b := &stubAgent{name: "b", types: []messaging.MessageType{messaging.MessageRequest}, delay: 50 * time.Millisecond, err: errors.New(errors.CodeInternal, "b broke", nil)}
	c := &stubAgent{name: "c", types: []messaging.MessageType{messaging.MessageIncident}}
	r := NewRouter()
	r.MustRegister(a, b, c)

	start := time.Now()
	d, err := r.Route(context.Background(), messaging.NewEnvelope(messaging.MessageRequest, "", "p"))
	require.NoError(t, err, "broadcast failures are not surfaced")
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, ModeBroadcast, d.Mode)
	assert.Equal(t, []string{"a", "b"}, d.Agents)
	assert.Nil(t, d.Response)

	r.Wait()
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestRouteBroadcastResults(t *testing.T) {
	a := &stubAgent{name: "a", types: []messaging.MessageType{messaging.MessageThink}}
	b := &stubAgent{name: "b", types: []messaging.MessageType{messaging.MessageThink}, err: errors.New(errors.CodeLLMError, "model down", nil)}
	r := NewRouter()
	r.MustRegister(a, b)

	req := messaging.NewEnvelope(messaging.MessageThink, "", "p")
	d, err := r.Route(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, d.Results)

	got := map[string]Result{}
	for res := range d.Results {
		got[res.Agent] = res
	}
	require.Len(t, got, 2)
	assert.NoError(t, got["a"].Err)
	assert.Equal(t, "handled by a", got["a"].Response.Payload)
	assert.Error(t, got["b"].Err)
	assert.Equal(t, messaging.MessageError, got["b"].Response.Type)
	assert.Equal(t, req.CorrelationID, got["b"].Response.CorrelationID)
	assert.Equal(t, "LLM_ERROR", got["b"].Response.MetaString(messaging.MetaErrorCode))
}

func TestRouteBroadcastOutlivesCaller(t *testing.T) {
	a := &stubAgent{name: "a", types: []messaging.MessageType{messaging.MessageThink}, delay: 20 * time.Millisecond}
	b := &stubAgent{name: "b", types: []messaging.MessageType{messaging.MessageThink}, delay: 20 * time.Millisecond}
	r := NewRouter()
	r.MustRegister(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	d, err := r.Route(ctx, messaging.NewEnvelope(messaging.MessageThink, "", "p"))
	require.NoError(t, err)
	cancel()

	for res := range d.Results {
		assert.NoError(t, res.Err, res.Agent)
	}
}

func TestRouteNoMatchDrops(t *testing.T) {
	r := NewRouter()
	r.MustRegister(&stubAgent{name: "a", types: []messaging.MessageType{messaging.MessageAct}})

	d, err := r.Route(context.Background(), messaging.NewEnvelope(messaging.MessagePolicyEvaluation, "", "p"))
	require.NoError(t, err)
	assert.Equal(t, ModeDropped, d.Mode)
	assert.Empty(t, d.Agents)
}

func TestRouteFailureBecomesErrorEnvelope(t *testing.T) {
	bus := messaging.NewInMemoryBus()
	got := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = bus.Subscribe(ctx, messaging.TopicResponses, func(_ context.Context, msg []byte) error {
			got <- msg
			return nil
		})
	}()
	require.Eventually(t, func() bool { return bus.Subscribers(messaging.TopicResponses) == 1 }, time.Second, time.Millisecond)

	failing := &stubAgent{name: "sre", types: []messaging.MessageType{messaging.MessageIncident}, err: errors.New(errors.CodeCircuitOpen, "llm breaker open", nil)}
	r := NewRouter(WithErrorTransport(bus, ""))
	r.MustRegister(failing)

	req := messaging.NewEnvelope(messaging.MessageIncident, "sre", "p")
	d, err := r.Route(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, d.Response)
	assert.Equal(t, messaging.MessageError, d.Response.Type)
	assert.Equal(t, req.CorrelationID, d.Response.CorrelationID)
	assert.Equal(t, "CIRCUIT_OPEN", d.Response.MetaString(messaging.MetaErrorCode))

	select {
	case msg := <-got:
		env, err := messaging.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, messaging.MessageError, env.Type)
		assert.Equal(t, req.CorrelationID, env.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("error envelope was not published")
	}
}

func TestRouteCancellationPropagates(t *testing.T) {
	slow := &stubAgent{name: "slow", types: []messaging.MessageType{messaging.MessageAct}, delay: time.Second}
	r := NewRouter()
	r.MustRegister(slow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Route(ctx, messaging.NewEnvelope(messaging.MessageAct, "", "p"))
	assert.True(t, errors.IsCanceled(err))
}

func TestRouterEvents(t *testing.T) {
	j := journal.NewMemoryJournal()
	r := NewRouter(WithRouterEvents(j))
	r.MustRegister(&stubAgent{name: "sre", types: []messaging.MessageType{messaging.MessageIncident}})

	req := messaging.NewEnvelope(messaging.MessageIncident, "", "p")
	_, err := r.Route(context.Background(), req)
	require.NoError(t, err)

	events, err := j.List(context.Background(), journal.Filter{CorrelationID: req.CorrelationID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.EventAgentDispatched, events[0].Type)
	assert.Equal(t, core.EventAgentResponded, events[1].Type)
	assert.Equal(t, "sre", events[1].Agent)
}

func TestRouterRegistry(t *testing.T) {
	r := NewRouter()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubAgent{name: " "}))

	r.MustRegister(&stubAgent{name: "b"}, &stubAgent{name: "a"})
	assert.Equal(t, []string{"a", "b"}, r.Agents())
	_, ok := r.Get("A")
	assert.True(t, ok)
}

func TestRouterConcurrentLookups(t *testing.T) {
	r := NewRouter()
	r.MustRegister(&stubAgent{name: "a", types: []messaging.MessageType{messaging.MessageAct}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Route(context.Background(), messaging.NewEnvelope(messaging.MessageAct, "", "p"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestBusListener(t *testing.T) {
	bus := messaging.NewInMemoryBus()
	sre := &stubAgent{name: "sre", types: []messaging.MessageType{messaging.MessageIncident}}
	r := NewRouter()
	r.MustRegister(sre)

	l := NewBusListener(bus, r, "", nil)
	assert.Equal(t, messaging.TopicRequests, l.Topic())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	require.Eventually(t, func() bool { return bus.Subscribers(messaging.TopicRequests) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), messaging.TopicRequests, []byte("{not json")))
	require.NoError(t, messaging.PublishEnvelope(context.Background(), bus, messaging.TopicRequests,
		messaging.NewEnvelope(messaging.MessageIncident, "", "disk full")))

	require.Eventually(t, func() bool { return sre.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
