// SPDX-License-Identifier: Apache-2.0
package messaging

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// SourceKernel is the source stamped on messages the kernel emits.
const SourceKernel = "semantic.kernel"

// TypeSkillInvocation tags a skill invocation notice.
const TypeSkillInvocation = "skill.invocation"

// SemanticMessage is the event notice published on the events topic.
type SemanticMessage struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewSkillInvocation describes a skill call made on behalf of agent.
func NewSkillInvocation(skill, content, correlationID, agent string) SemanticMessage {
	return SemanticMessage{
		ID:        core.NewID(),
		Type:      TypeSkillInvocation,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Source:    SourceKernel,
		Metadata: map[string]any{
			"skill":         skill,
			"correlationId": correlationID,
			"agent":         agent,
		},
	}
}

// FromEvent converts a lifecycle event into a semantic message.
func FromEvent(ev core.Event) SemanticMessage {
	md := make(map[string]any, len(ev.Metadata)+4)
	for k, v := range ev.Metadata {
		md[k] = v
	}
	md["runId"] = ev.RunID
	if ev.CorrelationID != "" {
		md["correlationId"] = ev.CorrelationID
	}
	if ev.Agent != "" {
		md["agent"] = ev.Agent
	}
	if ev.Iteration > 0 {
		md["iteration"] = strconv.Itoa(ev.Iteration)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return SemanticMessage{
		ID:        core.NewID(),
		Type:      string(ev.Type),
		Content:   ev.Content,
		Timestamp: ts,
		Source:    SourceKernel,
		Metadata:  md,
	}
}

// EncodeSemantic serializes m as compact JSON.
func EncodeSemantic(m SemanticMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "encode semantic message", err)
	}
	return data, nil
}

// DecodeSemantic parses a semantic message.
func DecodeSemantic(data []byte) (SemanticMessage, error) {
	var m SemanticMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return SemanticMessage{}, errors.New(errors.CodeInvalidInput, "decode semantic message", err)
	}
	return m, nil
}
