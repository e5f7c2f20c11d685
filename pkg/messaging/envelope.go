// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging defines the agent envelope, the semantic event message
// and the transport both travel on.
package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// Default topics.
const (
	TopicEvents    = "archenaai.semantic.events"
	TopicResponses = "archenaai.agents.responses"
	TopicRequests  = "archenaai.agents.requests"
)

// Metadata keys stamped on response envelopes.
const (
	MetaSourceAgent = "sourceAgent"
	MetaRequestType = "requestType"
	MetaErrorCode   = "errorCode"
)

// MessageType classifies an envelope. It travels as a camelCase string.
type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageRequest
	MessageThink
	MessageAct
	MessageResponse
	MessageMemoryIndex
	MessageMemoryStore
	MessageMemorySearch
	MessageNormalize
	MessageDocumentation
	MessageDevOpsTask
	MessageIncident
	MessageLogAnalysis
	MessageComplianceCheck
	MessagePolicyEvaluation
	MessageError
)

var messageTypeNames = [...]string{
	MessageUnknown:          "unknown",
	MessageRequest:          "request",
	MessageThink:            "think",
	MessageAct:              "act",
	MessageResponse:         "response",
	MessageMemoryIndex:      "memoryIndex",
	MessageMemoryStore:      "memoryStore",
	MessageMemorySearch:     "memorySearch",
	MessageNormalize:        "normalize",
	MessageDocumentation:    "documentation",
	MessageDevOpsTask:       "devOpsTask",
	MessageIncident:         "incident",
	MessageLogAnalysis:      "logAnalysis",
	MessageComplianceCheck:  "complianceCheck",
	MessagePolicyEvaluation: "policyEvaluation",
	MessageError:            "error",
}

func (t MessageType) String() string {
	if t >= 0 && int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("messageType(%d)", int(t))
}

// ParseMessageType resolves a type name case-insensitively.
func ParseMessageType(s string) (MessageType, error) {
	s = strings.TrimSpace(s)
	for i, name := range messageTypeNames {
		if strings.EqualFold(name, s) {
			return MessageType(i), nil
		}
	}
	return MessageUnknown, errors.Newf(errors.CodeInvalidInput, "unknown message type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t MessageType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(messageTypeNames) {
		return nil, errors.Newf(errors.CodeInvalidInput, "invalid message type %d", int(t))
	}
	return []byte(messageTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MessageType) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MessageTypes lists every defined type.
func MessageTypes() []MessageType {
	out := make([]MessageType, len(messageTypeNames))
	for i := range messageTypeNames {
		out[i] = MessageType(i)
	}
	return out
}

// Envelope is the unit routed between agents. CorrelationID is set once
// and carried unchanged through every derived envelope.
type Envelope struct {
	Type          MessageType    `json:"type"`
	Agent         string         `json:"agent,omitempty"`
	CorrelationID string         `json:"correlationId"`
	ReplyTo       string         `json:"replyTo,omitempty"`
	Payload       string         `json:"payload"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewEnvelope creates an envelope with a fresh correlation id.
func NewEnvelope(t MessageType, agent, payload string) Envelope {
	return Envelope{
		Type:          t,
		Agent:         agent,
		CorrelationID: core.NewID(),
		Payload:       payload,
		Metadata:      map[string]any{},
	}
}

// Meta returns a metadata value. Keys match case-insensitively.
func (e Envelope) Meta(key string) (any, bool) {
	if v, ok := e.Metadata[key]; ok {
		return v, true
	}
	for k, v := range e.Metadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// MetaString returns a metadata value rendered as a string.
func (e Envelope) MetaString(key string) string {
	v, ok := e.Meta(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Reply derives a response envelope from e: same correlation id, the
// responding agent as sender and replyTo echoed.
func (e Envelope) Reply(t MessageType, agent, payload string) Envelope {
	return Envelope{
		Type:          t,
		Agent:         agent,
		CorrelationID: e.CorrelationID,
		ReplyTo:       e.ReplyTo,
		Payload:       payload,
		Metadata: map[string]any{
			MetaSourceAgent: agent,
			MetaRequestType: e.Type.String(),
		},
	}
}

// Encode serializes e as compact camelCase JSON.
func Encode(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "encode envelope", err)
	}
	return data, nil
}

// Decode parses an envelope. Empty input and malformed JSON are
// INVALID_INPUT. A missing correlation id is generated.
func Decode(data []byte) (Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Envelope{}, errors.New(errors.CodeInvalidInput, "message cannot be empty", nil)
	}
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, errors.New(errors.CodeInvalidInput, "decode envelope", err)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = core.NewID()
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	return e, nil
}
