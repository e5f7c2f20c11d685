// SPDX-License-Identifier: Apache-2.0
package builtin

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
)

// FromManifest builds a prompt skill: the manifest body is the system
// prompt and its template, if any, formats the user prompt.
func FromManifest(m skills.Manifest, connector llm.Connector) *LLMSkill {
	prompt := Prompt{System: m.Body}
	if m.Template != "" {
		tmpl := m.Template
		prompt.Format = func(input string) (string, error) {
			return strings.Replace(tmpl, "%s", input, 1), nil
		}
	}
	if m.OutputKind == skills.KindJSON {
		prompt.Fallback = "{}"
	}
	return NewLLMSkill(m.Descriptor(), prompt, connector)
}

// RegisterDir loads every SKILL.md manifest under root and registers the
// resulting prompt skills. A missing root registers nothing. Manifest
// names equal their directory names, so they are unique within root; a
// name that is already registered fails the whole load before anything
// is registered.
func RegisterDir(registry *skills.Registry, root string, connector llm.Connector, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return 0, nil
	}
	manifests, err := skills.LoadDir(root)
	if err != nil {
		return 0, fmt.Errorf("load skills from %s: %w", root, err)
	}
	for _, m := range manifests {
		if _, ok := registry.Get(m.Name); ok {
			return 0, errors.Newf(errors.CodeInvalidInput, "skill %q is already registered", m.Name).
				WithContext("path", m.Path)
		}
	}
	for _, m := range manifests {
		if err := registry.Register(FromManifest(m, connector)); err != nil {
			return 0, err
		}
		logger.Info("skills.manifest.loaded", slog.String("skill", m.Name), slog.String("path", m.Path))
	}
	return len(manifests), nil
}
