// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name looked up in each skill directory.
const ManifestFile = "SKILL.md"

// Manifest declares a prompt-template skill. The markdown body is the
// system prompt; Template, when set, formats the user prompt with %s.
type Manifest struct {
	Name          string
	Description   string
	Category      Category
	Tags          []string
	AllowedModels []string
	OutputKind    Kind
	Template      string
	Metadata      map[string]string
	Body          string
	Path          string
	Dir           string
}

// Descriptor derives the registration descriptor of the manifest.
func (m Manifest) Descriptor() Descriptor {
	return Descriptor{
		Name:          m.Name,
		Description:   m.Description,
		Category:      m.Category,
		Tags:          append([]string(nil), m.Tags...),
		InputKind:     KindText,
		OutputKind:    m.OutputKind,
		AllowedModels: append([]string(nil), m.AllowedModels...),
	}
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:[-.][a-z0-9]+)*$`)

// LoadDir scans root for subdirectories holding a SKILL.md manifest.
func LoadDir(root string) ([]Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), ManifestFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md manifest.
func LoadFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Manifest{}, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return Manifest{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	tags, err := normalizeList("tags", parsed.Tags)
	if err != nil {
		return Manifest{}, err
	}
	models, err := normalizeList("allowed-models", parsed.AllowedModels)
	if err != nil {
		return Manifest{}, err
	}
	category, err := ParseCategory(parsed.Category)
	if err != nil {
		return Manifest{}, err
	}
	if category == CategoryUnknown {
		category = CategoryLLM
	}
	output := Kind(strings.ToLower(strings.TrimSpace(parsed.Output)))
	switch output {
	case KindAny, KindText, KindJSON:
	default:
		return Manifest{}, fmt.Errorf("output must be text or json, got %q", parsed.Output)
	}

	m := Manifest{
		Name:          strings.TrimSpace(parsed.Name),
		Description:   strings.TrimSpace(parsed.Description),
		Category:      category,
		Tags:          tags,
		AllowedModels: models,
		OutputKind:    output,
		Template:      parsed.Template,
		Metadata:      parsed.Metadata,
		Body:          strings.TrimSpace(body),
		Path:          path,
		Dir:           filepath.Dir(path),
	}
	if err := validate(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

type frontmatter struct {
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Category      string            `yaml:"category"`
	Tags          any               `yaml:"tags"`
	AllowedModels any               `yaml:"allowed-models"`
	Output        string            `yaml:"output"`
	Template      string            `yaml:"template"`
	Metadata      map[string]string `yaml:"metadata"`
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func validate(m Manifest) error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(m.Name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	if dirName := filepath.Base(m.Dir); dirName != m.Name {
		return fmt.Errorf("name must match directory name (%s)", dirName)
	}
	if m.Description == "" {
		return errors.New("description is required")
	}
	if utf8.RuneCountInString(m.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	if m.Body == "" {
		return errors.New("prompt body is required")
	}
	if m.Template != "" && !strings.Contains(m.Template, "%s") {
		return errors.New("template must contain %s")
	}
	return nil
}

func normalizeList(field string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return dedupe(strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string list", field)
			}
			out = append(out, str)
		}
		return dedupe(out), nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list", field)
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
