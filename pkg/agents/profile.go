// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/orchestration"
	"gopkg.in/yaml.v3"
)

// Profile is the static definition of an agent role.
type Profile struct {
	Name        string
	Description string
	// Capabilities lists the handled message types; empty handles all.
	Capabilities []messaging.MessageType
	Loop         orchestration.LoopOptions
	// Prompt is a text/template over PromptData.
	Prompt string
}

// PromptData is what a profile prompt template sees.
type PromptData struct {
	Agent         string
	Sender        string
	Type          string
	CorrelationID string
	Payload       string
}

// CanHandle reports whether t is one of the profile capabilities.
func (p Profile) CanHandle(t messaging.MessageType) bool {
	if len(p.Capabilities) == 0 {
		return true
	}
	for _, c := range p.Capabilities {
		if c == t {
			return true
		}
	}
	return false
}

func (p Profile) compile() (*template.Template, error) {
	text := p.Prompt
	if strings.TrimSpace(text) == "" {
		text = "[{{.Agent}}] {{.Payload}}"
	}
	tmpl, err := template.New(p.Name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid prompt template", err).WithContext("agent", p.Name)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.New(errors.CodeInvalidInput, "render prompt", err).WithContext("agent", data.Agent)
	}
	return strings.TrimSpace(buf.String()), nil
}

type profileFile struct {
	Agents []profileOverride `yaml:"agents"`
}

type profileOverride struct {
	Name         string       `yaml:"name"`
	Description  *string      `yaml:"description"`
	Capabilities []string     `yaml:"capabilities"`
	Prompt       *string      `yaml:"prompt"`
	Loop         loopOverride `yaml:"loop"`
	Disabled     bool         `yaml:"disabled"`
}

type loopOverride struct {
	MaxIterations      *int    `yaml:"maxIterations"`
	UseMemory          *bool   `yaml:"useMemory"`
	UseReflection      *bool   `yaml:"useReflection"`
	UseCorrection      *bool   `yaml:"useCorrection"`
	TerminationPattern *string `yaml:"terminationPattern"`
}

// LoadProfiles reads a YAML profiles file and applies it over base.
// Entries naming an unknown agent add a new profile; "disabled: true"
// removes one. The result keeps base order, new profiles last.
func LoadProfiles(path string, base []Profile) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProfiles(data, base)
}

// ParseProfiles is LoadProfiles over raw YAML.
func ParseProfiles(data []byte, base []Profile) ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agent profiles: %w", err)
	}

	out := make([]Profile, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[strings.ToLower(p.Name)] = i
	}
	removed := map[string]bool{}

	for _, o := range file.Agents {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return nil, errors.New(errors.CodeInvalidInput, "agent profile without a name", nil)
		}
		key := strings.ToLower(name)
		if o.Disabled {
			removed[key] = true
			continue
		}
		i, ok := index[key]
		if !ok {
			out = append(out, Profile{Name: name, Loop: orchestration.DefaultLoopOptions()})
			i = len(out) - 1
			index[key] = i
		}
		p, err := o.apply(out[i])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}

	kept := out[:0]
	for _, p := range out {
		if !removed[strings.ToLower(p.Name)] {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func (o profileOverride) apply(p Profile) (Profile, error) {
	if o.Description != nil {
		p.Description = *o.Description
	}
	if o.Prompt != nil {
		p.Prompt = *o.Prompt
	}
	if o.Capabilities != nil {
		caps := make([]messaging.MessageType, 0, len(o.Capabilities))
		for _, c := range o.Capabilities {
			t, err := messaging.ParseMessageType(c)
			if err != nil {
				return p, err
			}
			caps = append(caps, t)
		}
		p.Capabilities = caps
	}
	if o.Loop.MaxIterations != nil {
		p.Loop.MaxIterations = *o.Loop.MaxIterations
	}
	if o.Loop.UseMemory != nil {
		p.Loop.UseMemory = *o.Loop.UseMemory
	}
	if o.Loop.UseReflection != nil {
		p.Loop.UseReflection = *o.Loop.UseReflection
	}
	if o.Loop.UseCorrection != nil {
		p.Loop.UseCorrection = *o.Loop.UseCorrection
	}
	if o.Loop.TerminationPattern != nil {
		p.Loop.TerminationPattern = *o.Loop.TerminationPattern
	}
	if err := p.Loop.Validate(); err != nil {
		return p, err
	}
	if _, err := p.compile(); err != nil {
		return p, err
	}
	return p, nil
}
