// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for kernel spans. LLM keys follow the gen_ai conventions.
const (
	AttrRunID         = "archena.run.id"
	AttrCorrelationID = "archena.correlation_id"
	AttrIteration     = "archena.run.iteration"
	AttrMaxIterations = "archena.run.max_iterations"
	AttrUseMemory     = "archena.run.use_memory"

	AttrAgentName    = "archena.agent.name"
	AttrDispatchMode = "archena.dispatch.mode"
	AttrEnvelopeType = "archena.envelope.type"

	AttrSkillName = "archena.skill.name"
	AttrSkillKind = "archena.skill.input_kind"

	AttrActionName   = "archena.action.name"
	AttrActionArgs   = "archena.action.arguments"
	AttrActionResult = "archena.action.result"

	AttrMemoryMatches = "archena.memory.matches"

	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
)

// RunAttributes describes an orchestration run.
func RunAttributes(runID, correlationID string, maxIter int, useMemory bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrMaxIterations, maxIter),
		attribute.Bool(AttrUseMemory, useMemory),
	}
	if correlationID != "" {
		attrs = append(attrs, attribute.String(AttrCorrelationID, correlationID))
	}
	return attrs
}

// DispatchAttributes describes a routed envelope.
func DispatchAttributes(envelopeType, agent, correlationID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrEnvelopeType, envelopeType),
		attribute.String(AttrCorrelationID, correlationID),
	}
	if agent != "" {
		attrs = append(attrs, attribute.String(AttrAgentName, agent))
	}
	return attrs
}

// ActionAttributes carries an action name with its arguments and result,
// each truncated to maxLen bytes (500 when maxLen <= 0).
func ActionAttributes(name, args, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	attrs := []attribute.KeyValue{attribute.String(AttrActionName, name)}
	if args != "" {
		attrs = append(attrs, attribute.String(AttrActionArgs, truncate(args, maxLen)))
	}
	if result != "" {
		attrs = append(attrs, attribute.String(AttrActionResult, truncate(result, maxLen)))
	}
	return attrs
}

// LLMAttributes describes a model call.
func LLMAttributes(model, provider string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrLLMModel, model)}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes; zero counts are omitted.
func LLMUsageAttributes(inputTokens, outputTokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	return attrs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
