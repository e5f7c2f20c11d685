// SPDX-License-Identifier: Apache-2.0
package skills

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/pipeline"
)

// Registry maps case-insensitive names to skills and runs every execution
// through its pipeline executor. Lookups take a read lock only, so
// concurrent executions never serialize on each other.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]Skill
	executor *pipeline.Executor
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry bound to executor. A nil executor runs
// skills with no behaviors.
func NewRegistry(executor *pipeline.Executor, opts ...RegistryOption) *Registry {
	if executor == nil {
		executor = pipeline.NewExecutor()
	}
	r := &Registry{
		skills:   make(map[string]Skill),
		executor: executor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores skill under its descriptor name. A later registration
// with the same name replaces the earlier one.
func (r *Registry) Register(skill Skill) error {
	if skill == nil {
		return errors.New(errors.CodeInvalidInput, "skill is nil", nil)
	}
	name := strings.TrimSpace(skill.Descriptor().Name)
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "skill name cannot be empty", nil)
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	_, replaced := r.skills[key]
	r.skills[key] = skill
	r.mu.Unlock()

	r.logger.Debug("skills.register",
		slog.String("skill", name),
		slog.Bool("replaced", replaced),
	)
	return nil
}

// MustRegister is Register for static startup tables.
func (r *Registry) MustRegister(skills ...Skill) {
	for _, s := range skills {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Get returns the skill registered under name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Descriptor returns the descriptor of a registered skill.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	s, ok := r.Get(name)
	if !ok {
		return Descriptor{}, false
	}
	return s.Descriptor().clone(), true
}

// Descriptors lists all descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s.Descriptor().clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Execute runs the named skill through the pipeline. The skill's result is
// returned verbatim unless a behavior fails, in which case the error
// replaces it.
func (r *Registry) Execute(ctx context.Context, name string, inv Invocation) (Result, error) {
	skill, ok := r.Get(name)
	if !ok {
		return Result{}, errors.NotFound("skill", name)
	}
	desc := skill.Descriptor()
	if !desc.InputKind.Accepts(KindOf(inv.Input)) {
		return Result{}, errors.Newf(errors.CodeValidation,
			"skill %q expects %s input, got %s", desc.Name, desc.InputKind, KindOf(inv.Input)).
			WithContext("skill", desc.Name)
	}
	if inv.CorrelationID == "" {
		inv = inv.WithCorrelationID(NewInvocation(nil).CorrelationID)
	}
	if inv.Items == nil {
		inv.Items = make(map[string]any)
	}

	ctx = pipeline.WithOperation(ctx, "skill."+desc.Name)
	return pipeline.Execute(ctx, r.executor, func(ctx context.Context) (Result, error) {
		res, err := skill.Execute(ctx, inv)
		if err != nil {
			return Result{}, err
		}
		return res.withMeta(MetaSkillName, desc.Name), nil
	})
}
