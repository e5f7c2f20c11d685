// SPDX-License-Identifier: Apache-2.0
package skills

import "github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"

// MetaSkillName is the metadata key the registry stamps on every result.
const MetaSkillName = "skillName"

// Result is either a success carrying an output or a failure carrying an
// error. Never both.
type Result struct {
	ok       bool
	output   Payload
	err      error
	metadata map[string]any
}

// Success builds a successful result.
func Success(output Payload, metadata map[string]any) Result {
	return Result{ok: true, output: output, metadata: copyMeta(metadata)}
}

// Failure builds a failed result. A nil err is replaced by an internal error.
func Failure(err error, metadata map[string]any) Result {
	if err == nil {
		err = errors.New(errors.CodeInternal, "skill failed without an error", nil)
	}
	return Result{err: err, metadata: copyMeta(metadata)}
}

// OK reports success.
func (r Result) OK() bool { return r.ok }

// Output is the success payload; nil on failure.
func (r Result) Output() Payload { return r.output }

// Err is the failure cause; nil on success.
func (r Result) Err() error { return r.err }

// Metadata returns a copy of the result metadata.
func (r Result) Metadata() map[string]any { return copyMeta(r.metadata) }

// Meta returns one metadata value.
func (r Result) Meta(key string) (any, bool) {
	v, ok := r.metadata[key]
	return v, ok
}

// Text renders the output as text; failures return their error.
func (r Result) Text() (string, error) {
	if !r.ok {
		return "", r.err
	}
	if r.output == nil {
		return "", nil
	}
	return r.output.String(), nil
}

// SkillName is the registered name of the skill that produced r.
func (r Result) SkillName() string {
	name, _ := r.metadata[MetaSkillName].(string)
	return name
}

func (r Result) withMeta(key string, value any) Result {
	md := copyMeta(r.metadata)
	md[key] = value
	r.metadata = md
	return r
}

func copyMeta(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
