// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"encoding/json"
	"fmt"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// Kind names the concrete shape carried by a Payload.
type Kind string

const (
	// KindAny accepts every payload kind. Used by descriptors only.
	KindAny    Kind = ""
	KindText   Kind = "text"
	KindJSON   Kind = "json"
	KindBinary Kind = "binary"
)

// Accepts reports whether a payload of kind other satisfies k.
func (k Kind) Accepts(other Kind) bool {
	return k == KindAny || k == other
}

// Payload is the closed set of values skills consume and produce.
type Payload interface {
	Kind() Kind
	String() string
	payload()
}

// TextPayload is plain text.
type TextPayload string

// JSONPayload is a structured JSON document.
type JSONPayload json.RawMessage

// BinaryPayload is opaque bytes.
type BinaryPayload []byte

func (TextPayload) Kind() Kind { return KindText }
func (p TextPayload) String() string { return string(p) }
func (TextPayload) payload() {}

func (JSONPayload) Kind() Kind { return KindJSON }
func (p JSONPayload) String() string { return string(p) }
func (JSONPayload) payload() {}

func (BinaryPayload) Kind() Kind { return KindBinary }
func (p BinaryPayload) String() string {
	return fmt.Sprintf("<%d bytes>", len(p))
}
func (BinaryPayload) payload() {}

// Text wraps s as a TextPayload.
func Text(s string) Payload { return TextPayload(s) }

// JSON marshals v into a JSONPayload.
func JSON(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "payload is not JSON serializable", err)
	}
	return JSONPayload(data), nil
}

// Binary wraps b as a BinaryPayload.
func Binary(b []byte) Payload { return BinaryPayload(b) }

// KindOf returns the kind of p, or KindAny for nil.
func KindOf(p Payload) Kind {
	if p == nil {
		return KindAny
	}
	return p.Kind()
}

// AsText returns the text of p. JSON payloads are returned verbatim;
// nil and binary payloads are rejected.
func AsText(p Payload) (string, error) {
	switch v := p.(type) {
	case TextPayload:
		return string(v), nil
	case JSONPayload:
		return string(v), nil
	case nil:
		return "", errors.New(errors.CodeInvalidInput, "payload is empty", nil)
	default:
		return "", errors.Newf(errors.CodeInvalidInput, "payload kind %q is not textual", p.Kind())
	}
}

// DecodeJSON unmarshals a JSON payload into v.
func DecodeJSON(p Payload, v any) error {
	jp, ok := p.(JSONPayload)
	if !ok {
		return errors.Newf(errors.CodeInvalidInput, "payload kind %q is not json", KindOf(p))
	}
	if err := json.Unmarshal(jp, v); err != nil {
		return errors.New(errors.CodeInvalidInput, "decode json payload", err)
	}
	return nil
}
