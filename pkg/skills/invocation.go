// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"strings"

	"github.com/google/uuid"
)

// Invocation carries the input and ambient items of one skill execution.
type Invocation struct {
	Input         Payload
	Items         map[string]any
	CorrelationID string
}

// NewInvocation creates an invocation with a fresh correlation id.
func NewInvocation(input Payload) Invocation {
	return Invocation{
		Input:         input,
		Items:         make(map[string]any),
		CorrelationID: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// TextInvocation is NewInvocation with a text payload.
func TextInvocation(text string) Invocation {
	return NewInvocation(Text(text))
}

// WithCorrelationID returns a copy bound to id.
func (inv Invocation) WithCorrelationID(id string) Invocation {
	if id != "" {
		inv.CorrelationID = id
	}
	return inv
}

// WithItem sets an item. Keys are case-insensitive.
func (inv Invocation) WithItem(key string, value any) Invocation {
	items := make(map[string]any, len(inv.Items)+1)
	for k, v := range inv.Items {
		items[k] = v
	}
	items[strings.ToLower(key)] = value
	inv.Items = items
	return inv
}

// Item returns the item stored under key.
func (inv Invocation) Item(key string) (any, bool) {
	v, ok := inv.Items[strings.ToLower(key)]
	return v, ok
}

// Text returns the input as text.
func (inv Invocation) Text() (string, error) {
	return AsText(inv.Input)
}
