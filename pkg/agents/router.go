// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mode tells how an envelope was dispatched.
type Mode string

const (
	ModeDirect     Mode = "direct"
	ModeCapability Mode = "capability"
	ModeBroadcast  Mode = "broadcast"
	ModeDropped    Mode = "dropped"
)

// Dispatch reports the outcome of Route. Response is set on the
// synchronous paths only; it is an error envelope when the agent failed.
// Results is set on broadcast: it yields one Result per agent and is
// closed once every branch finished. It is buffered, so callers that do
// not care may ignore it.
type Dispatch struct {
	Mode     Mode                `json:"mode"`
	Agents   []string            `json:"agents,omitempty"`
	Response *messaging.Envelope `json:"response,omitempty"`
	Results  <-chan Result       `json:"-"`
}

// Result is the outcome of one broadcast branch. Response is an error
// envelope when Err is set.
type Result struct {
	Agent    string
	Response messaging.Envelope
	Err      error
}

// Router dispatches envelopes to agents by name or by capability.
// Registration is expected at startup; lookups only take a read lock.
type Router struct {
	mu     sync.RWMutex
	agents map[string]Agent

	transport messaging.Transport
	topic     string
	sink      core.EventSink
	metrics   *telemetry.ErrorMetrics
	logger    *slog.Logger
	tracer    trace.Tracer

	inflight sync.WaitGroup
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithErrorTransport publishes error envelopes for failed synchronous
// dispatches on t, to the envelope replyTo or topic.
func WithErrorTransport(t messaging.Transport, topic string) RouterOption {
	return func(r *Router) {
		r.transport = t
		if topic != "" {
			r.topic = topic
		}
	}
}

// WithRouterEvents emits agent.dispatched/responded/failed events to sink.
func WithRouterEvents(sink core.EventSink) RouterOption {
	return func(r *Router) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithRouterMetrics counts dropped envelopes and agent failures.
func WithRouterMetrics(m *telemetry.ErrorMetrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithRouterLogger sets the router logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		agents: make(map[string]Agent),
		topic:  messaging.TopicResponses,
		sink:   core.NoopEventSink{},
		logger: slog.Default(),
		tracer: otel.Tracer("archena/agents"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an agent, replacing one with the same name.
func (r *Router) Register(a Agent) error {
	if a == nil {
		return errors.New(errors.CodeInvalidInput, "agent is nil", nil)
	}
	name := strings.TrimSpace(a.Name())
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "agent name cannot be empty", nil)
	}
	r.mu.Lock()
	r.agents[strings.ToLower(name)] = a
	r.mu.Unlock()
	r.logger.Info("router.register", slog.String("agent", name))
	return nil
}

// MustRegister is Register for startup tables.
func (r *Router) MustRegister(agents ...Agent) {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Get resolves an agent by name.
func (r *Router) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Agents lists registered agent names, sorted.
func (r *Router) Agents() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Name())
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// matching returns the agents capable of t, sorted by name.
func (r *Router) matching(t messaging.MessageType) []Agent {
	r.mu.RLock()
	var out []Agent
	for _, a := range r.agents {
		if a.CanHandle(t) {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Route dispatches env. A registered target agent is invoked directly and
// capabilities are not consulted. Otherwise a single capable agent is
// invoked synchronously, several are started concurrently without waiting
// and detached from ctx cancellation, and none drops the envelope. Only cancellation is returned as an error:
// a failing synchronous agent yields an error envelope in the Dispatch.
func (r *Router) Route(ctx context.Context, env messaging.Envelope) (Dispatch, error) {
	ctx, span := r.tracer.Start(ctx, "Router.Route", trace.WithAttributes(
		telemetry.DispatchAttributes(env.Type.String(), env.Agent, env.CorrelationID)...,
	))
	defer span.End()
	ctx = core.WithCorrelationID(ctx, env.CorrelationID)
	logger := r.logger.With(slog.String("correlation_id", env.CorrelationID))

	if env.Agent != "" {
		if target, ok := r.Get(env.Agent); ok {
			return r.invoke(ctx, logger, ModeDirect, target, env)
		}
		logger.Warn("router.agent.not_found", slog.String("agent", env.Agent))
	}

	candidates := r.matching(env.Type)
	switch len(candidates) {
	case 0:
		logger.Error("router.dropped", slog.String("type", env.Type.String()))
		span.SetAttributes(attribute.String(telemetry.AttrDispatchMode, string(ModeDropped)))
		r.metrics.RecordDropped(ctx, env.Type.String())
		return Dispatch{Mode: ModeDropped}, nil
	case 1:
		return r.invoke(ctx, logger, ModeCapability, candidates[0], env)
	}

	names := make([]string, len(candidates))
	for i, a := range candidates {
		names[i] = a.Name()
	}
	logger.Info("router.broadcast", slog.Int("agents", len(candidates)), slog.Any("names", names))
	span.SetAttributes(attribute.String(telemetry.AttrDispatchMode, string(ModeBroadcast)))
	// Branches outlive the caller; they keep its values but not its
	// cancellation.
	bctx := context.WithoutCancel(ctx)
	results := make(chan Result, len(candidates))
	var branches sync.WaitGroup
	for _, a := range candidates {
		r.inflight.Add(1)
		branches.Add(1)
		go func(a Agent) {
			defer r.inflight.Done()
			defer branches.Done()
			r.emit(bctx, core.EventAgentDispatched, a.Name(), env.Payload)
			resp, err := a.Handle(bctx, env)
			if err != nil {
				logger.Warn("router.broadcast.failed", slog.String("agent", a.Name()), slog.String("error", err.Error()))
				r.metrics.RecordError(bctx, err, a.Name())
				r.emit(bctx, core.EventAgentFailed, a.Name(), err.Error())
				results <- Result{Agent: a.Name(), Response: ErrorEnvelope(env, a.Name(), err), Err: err}
				return
			}
			r.emit(bctx, core.EventAgentResponded, a.Name(), resp.Payload)
			results <- Result{Agent: a.Name(), Response: resp}
		}(a)
	}
	go func() {
		branches.Wait()
		close(results)
	}()
	return Dispatch{Mode: ModeBroadcast, Agents: names, Results: results}, nil
}

// Wait blocks until every broadcast dispatch has finished.
func (r *Router) Wait() { r.inflight.Wait() }

func (r *Router) invoke(ctx context.Context, logger *slog.Logger, mode Mode, a Agent, env messaging.Envelope) (Dispatch, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(telemetry.AttrDispatchMode, string(mode)),
		attribute.String(telemetry.AttrAgentName, a.Name()),
	)
	logger.Info("router.dispatch", slog.String("mode", string(mode)), slog.String("agent", a.Name()))
	r.emit(ctx, core.EventAgentDispatched, a.Name(), env.Payload)

	d := Dispatch{Mode: mode, Agents: []string{a.Name()}}
	resp, err := a.Handle(ctx, env)
	if err == nil {
		r.emit(ctx, core.EventAgentResponded, a.Name(), resp.Payload)
		d.Response = &resp
		return d, nil
	}
	if errors.IsCanceled(err) {
		return d, err
	}

	logger.Warn("router.agent.failed", slog.String("agent", a.Name()), slog.String("error", err.Error()))
	r.metrics.RecordError(ctx, err, a.Name())
	r.emit(ctx, core.EventAgentFailed, a.Name(), err.Error())
	failure := ErrorEnvelope(env, a.Name(), err)
	d.Response = &failure
	r.publishError(ctx, logger, failure)
	return d, nil
}

// ErrorEnvelope builds the error response for env failed by agent.
func ErrorEnvelope(env messaging.Envelope, agent string, err error) messaging.Envelope {
	resp := env.Reply(messaging.MessageError, agent, err.Error())
	resp.Metadata[messaging.MetaErrorCode] = string(errors.CodeOf(err))
	return resp
}

func (r *Router) publishError(ctx context.Context, logger *slog.Logger, env messaging.Envelope) {
	if r.transport == nil {
		return
	}
	topic := r.topic
	if env.ReplyTo != "" {
		topic = env.ReplyTo
	}
	if err := messaging.PublishEnvelope(ctx, r.transport, topic, env); err != nil {
		logger.Error("router.error_envelope.failed", slog.String("topic", topic), slog.String("error", err.Error()))
	}
}

func (r *Router) emit(ctx context.Context, t core.EventType, agent, content string) {
	ev := core.NewEvent(core.WithAgentName(ctx, agent), t, content)
	if err := r.sink.Emit(ctx, ev); err != nil {
		r.logger.Warn("router.event.failed", slog.String("type", string(t)), slog.String("error", err.Error()))
	}
}
