// SPDX-License-Identifier: Apache-2.0
package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Parameters are the sampling knobs of one request. Zero values fall back
// to the connector defaults.
type Parameters struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
}

// Request is what skills send to the model.
type Request struct {
	Prompt       string
	SystemPrompt string
	Parameters   Parameters
	Metadata     map[string]string
}

// Response is what the model returned.
type Response struct {
	Content  string
	Usage    Usage
	Metadata map[string]string
}

// Connector sends prompts to a language model.
type Connector interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// ProviderConnector adapts a chat Provider into a Connector.
type ProviderConnector struct {
	provider Provider
	name     string
	defaults Parameters
	logger   *slog.Logger
	tracer   trace.Tracer
}

// ConnectorOption configures a ProviderConnector.
type ConnectorOption func(*ProviderConnector)

// WithDefaults sets the parameters applied when a request leaves them zero.
func WithDefaults(p Parameters) ConnectorOption {
	return func(c *ProviderConnector) { c.defaults = p }
}

// WithProviderName labels spans with the provider system name.
func WithProviderName(name string) ConnectorOption {
	return func(c *ProviderConnector) { c.name = name }
}

// WithLogger sets the connector logger.
func WithLogger(logger *slog.Logger) ConnectorOption {
	return func(c *ProviderConnector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConnector creates a connector over provider.
func NewConnector(provider Provider, opts ...ConnectorOption) *ProviderConnector {
	c := &ProviderConnector{provider: provider, logger: slog.Default(), tracer: otel.Tracer("archena/llm")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the default model name.
func (c *ProviderConnector) Model() string { return c.defaults.Model }

// Send implements Connector.
func (c *ProviderConnector) Send(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "prompt cannot be empty", nil)
	}
	params := c.merge(req.Parameters)

	messages := make([]Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})

	ctx, span := c.tracer.Start(ctx, "LLM.Send", trace.WithAttributes(telemetry.LLMAttributes(params.Model, c.name)...))
	defer span.End()

	start := time.Now()
	resp, err := c.provider.Chat(ctx, ChatRequest{
		Model:       params.Model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "llm.send.failed",
			slog.String("model", params.Model),
			slog.String("correlation_id", req.Metadata["correlationId"]),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)...)

	md := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		md[k] = v
	}
	md["model"] = params.Model
	if resp.Model != "" {
		md["model"] = resp.Model
	}
	md["latency"] = time.Since(start).String()

	c.logger.DebugContext(ctx, "llm.send",
		slog.String("model", md["model"]),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return &Response{Content: resp.Content, Usage: resp.Usage, Metadata: md}, nil
}

func (c *ProviderConnector) merge(p Parameters) Parameters {
	if p.Model == "" {
		p.Model = c.defaults.Model
	}
	if p.Temperature == 0 {
		p.Temperature = c.defaults.Temperature
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = c.defaults.MaxTokens
	}
	if p.TopP == 0 {
		p.TopP = c.defaults.TopP
	}
	return p
}
