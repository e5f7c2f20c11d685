// SPDX-License-Identifier: Apache-2.0
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// CallerLLM tags actions requested from model output.
const CallerLLM = "llm"

// directive matches the first <Action name="X">{...}</Action> block.
var directive = regexp.MustCompile(`(?is)<Action name="(.*?)">\s*(\{.*?\})\s*</Action>`)

// ToolCall is a directive parsed out of model text.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Parse extracts the first directive in text. ok is false when there is
// none; a directive with malformed JSON yields a MALFORMED_TOOL_CALL error.
func Parse(text string) (call ToolCall, ok bool, err error) {
	m := directive.FindStringSubmatch(text)
	if m == nil {
		return ToolCall{}, false, nil
	}
	call.Name = strings.TrimSpace(m[1])
	if err := json.Unmarshal([]byte(m[2]), &call.Arguments); err != nil {
		return ToolCall{}, true, errors.New(errors.CodeMalformedToolCall, "action arguments are not valid JSON", err).
			WithContext("action", call.Name)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	return call, true, nil
}

// Planner intercepts action directives in model output and executes them.
// Only the first directive of a text is honored.
type Planner struct {
	actions *Registry
	logger  *slog.Logger
}

// NewPlanner creates a planner over actions; nil logger means slog.Default().
func NewPlanner(actions *Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{actions: actions, logger: logger}
}

// Process returns text unchanged when it carries no directive. Otherwise
// the directive's action runs and its result, rendered as a string,
// replaces the whole text. Unknown actions yield a placeholder.
func (p *Planner) Process(ctx context.Context, text, correlationID string) (string, error) {
	call, found, err := Parse(text)
	if !found {
		return text, nil
	}
	if err != nil {
		p.logger.WarnContext(ctx, "actions.directive.malformed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Canceled(err)
	}

	action, ok := p.actions.Get(call.Name)
	if !ok {
		p.logger.WarnContext(ctx, "actions.directive.unknown",
			slog.String("action", call.Name),
			slog.String("correlation_id", correlationID),
		)
		return fmt.Sprintf("[Action '%s' not found]", call.Name), nil
	}

	p.logger.InfoContext(ctx, "actions.execute",
		slog.String("action", call.Name),
		slog.String("correlation_id", correlationID),
		slog.Int("arguments", len(call.Arguments)),
	)
	out, err := action.Execute(ctx, Context{
		Input:         text,
		Arguments:     call.Arguments,
		CallingAgent:  CallerLLM,
		CorrelationID: correlationID,
	})
	if err != nil {
		return "", err
	}
	result := render(out)
	trace.SpanFromContext(ctx).AddEvent("action.executed", trace.WithAttributes(
		telemetry.ActionAttributes(call.Name, render(call.Arguments), result, 0)...,
	))
	return result, nil
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
