// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package builtin provides the model-backed skills every kernel ships
// with, plus prompt skills declared in SKILL.md manifests.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

// ItemParameters is the invocation item holding per-call llm.Parameters.
const ItemParameters = "llm.parameters"

// Prompt describes how a skill turns its text input into a model request.
type Prompt struct {
	System string
	// Format builds the user prompt from the trimmed input.
	Format func(input string) (string, error)
	// Fallback replaces an empty model answer.
	Fallback string
}

// LLMSkill sends its input to a model connector and returns the answer.
type LLMSkill struct {
	desc      skills.Descriptor
	prompt    Prompt
	connector llm.Connector
}

var _ skills.Skill = (*LLMSkill)(nil)

// NewLLMSkill creates a model-backed skill.
func NewLLMSkill(desc skills.Descriptor, prompt Prompt, connector llm.Connector) *LLMSkill {
	if prompt.Format == nil {
		prompt.Format = func(input string) (string, error) { return input, nil }
	}
	return &LLMSkill{desc: desc, prompt: prompt, connector: connector}
}

// Descriptor implements skills.Skill.
func (s *LLMSkill) Descriptor() skills.Descriptor { return s.desc }

// Execute implements skills.Skill. Blank or non-textual input is rejected
// with an INVALID_INPUT failure; connector errors are returned as errors so
// the pipeline can retry them.
func (s *LLMSkill) Execute(ctx context.Context, inv skills.Invocation) (skills.Result, error) {
	text, err := inv.Text()
	if err != nil {
		return skills.Failure(err, nil), nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return skills.Failure(errors.Newf(errors.CodeInvalidInput, "%s requires non-empty input", s.desc.Name), nil), nil
	}
	prompt, err := s.prompt.Format(text)
	if err != nil {
		return skills.Failure(err, nil), nil
	}

	req := llm.Request{
		Prompt:       prompt,
		SystemPrompt: s.prompt.System,
		Metadata: map[string]string{
			"correlationId": inv.CorrelationID,
			"skill":         s.desc.Name,
		},
	}
	if v, ok := inv.Item(ItemParameters); ok {
		if p, ok := v.(llm.Parameters); ok {
			req.Parameters = p
		}
	}

	resp, err := s.connector.Send(ctx, req)
	if err != nil {
		return skills.Result{}, err
	}
	content := ""
	if resp != nil {
		content = resp.Content
	}
	if strings.TrimSpace(content) == "" && s.prompt.Fallback != "" {
		content = s.prompt.Fallback
	}

	md := map[string]any{}
	if resp != nil {
		if model := resp.Metadata["model"]; model != "" {
			md["model"] = model
		}
		md["totalTokens"] = resp.Usage.TotalTokens
	}

	if s.desc.OutputKind == skills.KindJSON {
		doc := stripFence(content)
		if !json.Valid([]byte(doc)) {
			return skills.Failure(errors.Newf(errors.CodeValidation, "%s expected a JSON answer", s.desc.Name).
				WithContext("content", content), md), nil
		}
		return skills.Success(skills.JSONPayload(doc), md), nil
	}
	return skills.Success(skills.Text(content), md), nil
}

// stripFence removes a markdown code fence around a JSON answer.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func prefixed(format string) func(string) (string, error) {
	return func(input string) (string, error) { return fmt.Sprintf(format, input), nil }
}

// compare splits "A || B" into two texts.
func compare(input string) (string, error) {
	a, b, ok := strings.Cut(input, "||")
	if !ok {
		return "", errors.New(errors.CodeInvalidInput, "comparison input must be formatted as 'A || B'", nil)
	}
	return fmt.Sprintf("Compare the following two texts:\n\nA:\n%s\n\nB:\n%s", strings.TrimSpace(a), strings.TrimSpace(b)), nil
}

type definition struct {
	desc   skills.Descriptor
	prompt Prompt
}

var definitions = []definition{
	{
		skills.Descriptor{Name: "reasoning", Description: "Deep logical analysis and structured reasoning.",
			Category: skills.CategoryLLM, Tags: []string{"reasoning", "logic", "analysis"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are an expert reasoner. Produce rigorous logical arguments with verifiable steps.",
			Format: prefixed("Question: %s\n\nProvide structured, step-by-step reasoning."),
		},
	},
	{
		skills.Descriptor{Name: "planning", Description: "Analyzes goals and creates structured multi-step plans.",
			Category: skills.CategoryPlanning, Tags: []string{"plan", "task", "strategy", "steps"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are a strategic planning assistant. Create structured, logical, and efficient plans.",
			Format: prefixed("Task: %s\n\nCreate a clear, numbered execution plan with actionable steps."),
		},
	},
	{
		skills.Descriptor{Name: "reflection", Description: "Critically analyzes text and provides improved alternatives.",
			Category: skills.CategoryUtility, Tags: []string{"reflection", "critique"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are a reflective critic. Provide insights, mistakes, improvements, and refined versions.",
			Format: prefixed("Reflect on the following text and suggest improvements:\n\n%s"),
		},
	},
	{
		skills.Descriptor{Name: "correction", Description: "Corrects or improves the clarity, logic, or quality of a text.",
			Category: skills.CategoryUtility, Tags: []string{"correct", "rewrite"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are a corrective engine. Rewrite the text in a clearer, more correct, and more coherent form.",
			Format: prefixed("Please improve and correct the following text:\n\n%s"),
		},
	},
	{
		skills.Descriptor{Name: "summarization", Description: "Summarizes input text with clarity and precision.",
			Category: skills.CategoryLLM, Tags: []string{"summary", "condense"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are an expert summarizer. Produce concise, accurate summaries with preserved meaning.",
			Format: prefixed("Summarize the following text clearly:\n\n%s"),
		},
	},
	{
		skills.Descriptor{Name: "classification", Description: "Classifies text into semantic categories.",
			Category: skills.CategoryUtility, Tags: []string{"classify", "categorize"}, OutputKind: skills.KindJSON},
		Prompt{
			System:   `You classify input text precisely. Output a JSON object: { "category": "value" }`,
			Format:   prefixed("Classify the following text:\n\n%s"),
			Fallback: `{"category":"unknown"}`,
		},
	},
	{
		skills.Descriptor{Name: "comparison", Description: "Compares text A and B for differences and insights.",
			Category: skills.CategoryUtility, Tags: []string{"comparison", "diff"}, OutputKind: skills.KindText},
		Prompt{
			System: "You compare two items objectively and highlight key differences.",
			Format: compare,
		},
	},
	{
		skills.Descriptor{Name: "critique", Description: "Evaluates text for quality, correctness and completeness.",
			Category: skills.CategoryUtility, Tags: []string{"critique", "evaluation", "quality-check"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are an expert evaluator. Provide an objective critique of the text.",
			Format: prefixed("Please critique the following text:\n\n%s"),
		},
	},
	{
		skills.Descriptor{Name: "extraction", Description: "Extracts structured information (JSON/YAML) from text.",
			Category: skills.CategoryUtility, Tags: []string{"extraction", "structure"}, OutputKind: skills.KindText},
		Prompt{
			System:   "You extract structured JSON or YAML from text. Only output valid JSON by default.",
			Format:   prefixed("Extract structured information from the following text and return as JSON:\n\n%s"),
			Fallback: "{}",
		},
	},
	{
		skills.Descriptor{Name: "verification", Description: "Verifies accuracy and logical consistency.",
			Category: skills.CategoryUtility, Tags: []string{"verify", "check", "logic"}, OutputKind: skills.KindText},
		Prompt{
			System: "You are a strict verifier. Check if the content is accurate, logically coherent, and free of contradictions.",
			Format: prefixed("Verify the correctness and coherence of the following content:\n\n%s"),
		},
	},
}

// Names lists the built-in skill names in registration order.
func Names() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.desc.Name
	}
	return out
}

// All returns the built-in skills bound to connector.
func All(connector llm.Connector) []skills.Skill {
	out := make([]skills.Skill, 0, len(definitions))
	for _, d := range definitions {
		desc := d.desc
		desc.Tags = append([]string(nil), d.desc.Tags...)
		out = append(out, NewLLMSkill(desc, d.prompt, connector))
	}
	return out
}

// RegisterAll registers every built-in skill in registry.
func RegisterAll(registry *skills.Registry, connector llm.Connector) error {
	if connector == nil {
		return errors.New(errors.CodeInvalidInput, "llm connector is nil", nil)
	}
	for _, s := range All(connector) {
		if err := registry.Register(s); err != nil {
			return err
		}
	}
	return nil
}
