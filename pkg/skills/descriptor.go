// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"fmt"
	"strings"
)

// Category classifies skills for discovery and routing.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryLLM
	CategoryLocal
	CategoryHTTP
	CategoryEvent
	CategoryMemory
	CategoryPlanning
	CategoryUtility
)

var categoryNames = map[Category]string{
	CategoryUnknown:  "unknown",
	CategoryLLM:      "llm",
	CategoryLocal:    "local",
	CategoryHTTP:     "http",
	CategoryEvent:    "event",
	CategoryMemory:   "memory",
	CategoryPlanning: "planning",
	CategoryUtility:  "utility",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category name case-insensitively. Empty is unknown.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryUnknown, nil
	}
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown skill category %q", s)
}

// Descriptor is the registration-time metadata of a skill. Read-only once registered.
type Descriptor struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Category      Category `json:"category"`
	Tags          []string `json:"tags,omitempty"`
	InputKind     Kind     `json:"inputKind,omitempty"`
	OutputKind    Kind     `json:"outputKind,omitempty"`
	AllowedModels []string `json:"allowedModels,omitempty"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Category)
}

// AllowsModel reports whether model may run this skill. An empty allow list
// or an empty model permits everything.
func (d Descriptor) AllowsModel(model string) bool {
	if len(d.AllowedModels) == 0 || strings.TrimSpace(model) == "" {
		return true
	}
	for _, m := range d.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

func (d Descriptor) clone() Descriptor {
	d.Tags = append([]string(nil), d.Tags...)
	d.AllowedModels = append([]string(nil), d.AllowedModels...)
	return d
}
