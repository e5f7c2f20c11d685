// SPDX-License-Identifier: Apache-2.0
package actions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

type entry struct {
	action       Action
	registeredAt time.Time
}

// Registry maps case-insensitive action names to actions.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]entry
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]entry), now: time.Now}
}

// Register adds or replaces an action.
func (r *Registry) Register(a Action) error {
	if a == nil {
		return errors.New(errors.CodeInvalidInput, "action is nil", nil)
	}
	name := strings.TrimSpace(a.Descriptor().Name)
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "action name cannot be empty", nil)
	}
	r.mu.Lock()
	r.actions[strings.ToLower(name)] = entry{action: a, registeredAt: r.now().UTC()}
	r.mu.Unlock()
	return nil
}

// Unregister removes an action; it reports whether one was present.
func (r *Registry) Unregister(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[key]; !ok {
		return false
	}
	delete(r.actions, key)
	return true
}

// Get resolves an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.actions[strings.ToLower(strings.TrimSpace(name))]
	return e.action, ok
}

// List returns every descriptor, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.actions))
	for _, e := range r.actions {
		d := e.action.Descriptor()
		d.RegisteredAt = e.registeredAt
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Execute runs the named action.
func (r *Registry) Execute(ctx context.Context, name string, ac Context) (any, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, errors.NotFound("action", name)
	}
	return a.Execute(ctx, ac)
}
