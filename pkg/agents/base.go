// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
)

// Hook runs before the reasoning loop. An error aborts the envelope.
type Hook func(ctx context.Context, env messaging.Envelope) error

// Base is a profile-driven Agent: it renders the profile prompt, runs the
// loop matching the envelope type and publishes the response.
type Base struct {
	profile      Profile
	prompt       *template.Template
	orchestrator Orchestrator
	transport    messaging.Transport
	topic        string
	hooks        []Hook
	logger       *slog.Logger
}

var _ Agent = (*Base)(nil)

// Option configures a Base agent.
type Option func(*Base) error

// WithTransport publishes responses on t.
func WithTransport(t messaging.Transport) Option {
	return func(b *Base) error {
		b.transport = t
		return nil
	}
}

// WithResponseTopic sets the topic used when an envelope has no replyTo.
func WithResponseTopic(topic string) Option {
	return func(b *Base) error {
		if strings.TrimSpace(topic) == "" {
			return errors.New(errors.CodeInvalidInput, "response topic cannot be empty", nil)
		}
		b.topic = topic
		return nil
	}
}

// WithHook adds a hook run before the loop.
func WithHook(h Hook) Option {
	return func(b *Base) error {
		if h != nil {
			b.hooks = append(b.hooks, h)
		}
		return nil
	}
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// New creates an agent from profile.
func New(profile Profile, orchestrator Orchestrator, opts ...Option) (*Base, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "agent name is required", nil)
	}
	if orchestrator == nil {
		return nil, errors.New(errors.CodeInvalidInput, "orchestrator is required", nil).WithContext("agent", profile.Name)
	}
	if err := profile.Loop.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := profile.compile()
	if err != nil {
		return nil, err
	}
	b := &Base{
		profile:      profile,
		prompt:       tmpl,
		orchestrator: orchestrator,
		topic:        messaging.TopicResponses,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With(slog.String("agent", profile.Name))
	return b, nil
}

// Name implements Agent.
func (b *Base) Name() string { return b.profile.Name }

// Profile returns the agent profile.
func (b *Base) Profile() Profile { return b.profile }

// CanHandle implements Agent.
func (b *Base) CanHandle(t messaging.MessageType) bool { return b.profile.CanHandle(t) }

// Prompt renders the profile prompt for env.
func (b *Base) Prompt(env messaging.Envelope) (string, error) {
	return render(b.prompt, PromptData{
		Agent:         b.profile.Name,
		Sender:        env.MetaString(messaging.MetaSourceAgent),
		Type:          env.Type.String(),
		CorrelationID: env.CorrelationID,
		Payload:       env.Payload,
	})
}

// Handle implements Agent. Request and Think envelopes run plan-execute;
// every other type runs the reasoning loop.
func (b *Base) Handle(ctx context.Context, env messaging.Envelope) (messaging.Envelope, error) {
	ctx = core.WithCorrelationID(ctx, env.CorrelationID)
	ctx = core.WithAgentName(ctx, b.profile.Name)
	logger := b.logger.With(slog.String("correlation_id", env.CorrelationID))
	logger.Info("agent.handle", slog.String("type", env.Type.String()))

	for _, hook := range b.hooks {
		if err := hook(ctx, env); err != nil {
			return messaging.Envelope{}, err
		}
	}

	prompt, err := b.Prompt(env)
	if err != nil {
		return messaging.Envelope{}, err
	}

	var result string
	switch env.Type {
	case messaging.MessageRequest, messaging.MessageThink:
		result, err = b.orchestrator.PlanExecute(ctx, prompt, b.profile.Loop)
	default:
		if !knownLoopType(env.Type) {
			logger.Warn("agent.type.unrecognized", slog.String("type", env.Type.String()))
		}
		result, err = b.orchestrator.Reason(ctx, prompt, b.profile.Loop)
	}
	if err != nil {
		logger.Warn("agent.loop.failed", slog.String("error", err.Error()))
		return messaging.Envelope{}, err
	}

	resp := env.Reply(messaging.MessageResponse, b.profile.Name, result)
	if b.transport == nil {
		return resp, nil
	}
	topic := b.topic
	if env.ReplyTo != "" {
		topic = env.ReplyTo
	}
	logger.Info("agent.respond", slog.String("topic", topic))
	if err := messaging.PublishEnvelope(ctx, b.transport, topic, resp); err != nil {
		return resp, errors.New(errors.CodeTransportError, "publish response", err).
			WithContext("topic", topic).
			WithContext("agent", b.profile.Name)
	}
	return resp, nil
}

func knownLoopType(t messaging.MessageType) bool {
	switch t {
	case messaging.MessageAct, messaging.MessageMemoryIndex, messaging.MessageNormalize,
		messaging.MessageMemoryStore, messaging.MessageMemorySearch:
		return true
	}
	return false
}
