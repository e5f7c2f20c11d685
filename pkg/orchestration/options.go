// SPDX-License-Identifier: Apache-2.0
package orchestration

import (
	"regexp"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// DefaultTerminationPattern ends a loop when the model declares it is done.
const DefaultTerminationPattern = `\b(final answer|completed|done)\b`

// MemoryMatches is how many memory records augment each iteration.
const MemoryMatches = 3

// LoopOptions governs one orchestration run.
type LoopOptions struct {
	MaxIterations      int    `yaml:"maxIterations" json:"maxIterations"`
	UseMemory          bool   `yaml:"useMemory" json:"useMemory"`
	UseReflection      bool   `yaml:"useReflection" json:"useReflection"`
	UseCorrection      bool   `yaml:"useCorrection" json:"useCorrection"`
	TerminationPattern string `yaml:"terminationPattern" json:"terminationPattern,omitempty"`
}

// DefaultLoopOptions returns five iterations with memory, reflection and
// correction enabled.
func DefaultLoopOptions() LoopOptions {
	return LoopOptions{
		MaxIterations:      5,
		UseMemory:          true,
		UseReflection:      true,
		UseCorrection:      true,
		TerminationPattern: DefaultTerminationPattern,
	}
}

// Validate checks the iteration bound and compiles the termination pattern.
func (o LoopOptions) Validate() error {
	_, err := o.compile()
	return err
}

// compile returns the case-insensitive termination matcher, or nil when
// no pattern is configured.
func (o LoopOptions) compile() (*regexp.Regexp, error) {
	if o.MaxIterations < 0 {
		return nil, errors.Newf(errors.CodeInvalidInput, "maxIterations must not be negative, got %d", o.MaxIterations)
	}
	if o.TerminationPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + o.TerminationPattern)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid termination pattern", err).
			WithContext("pattern", o.TerminationPattern)
	}
	return re, nil
}
