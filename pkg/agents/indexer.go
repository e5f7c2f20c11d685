// SPDX-License-Identifier: Apache-2.0
package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
)

// MetaMemoryID names the envelope metadata key holding the memory record id.
const MetaMemoryID = "memoryId"

// MemoryWriter stores text under an id.
type MemoryWriter interface {
	Store(ctx context.Context, id, text string) error
}

// StoreHook persists MemoryStore and MemoryIndex payloads before the loop
// runs. The record id is the memoryId metadata value, or the correlation id.
func StoreHook(w MemoryWriter, logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, env messaging.Envelope) error {
		if env.Type != messaging.MessageMemoryStore && env.Type != messaging.MessageMemoryIndex {
			return nil
		}
		if strings.TrimSpace(env.Payload) == "" {
			return nil
		}
		id := env.MetaString(MetaMemoryID)
		if id == "" {
			id = env.CorrelationID
		}
		if err := w.Store(ctx, id, env.Payload); err != nil {
			return err
		}
		logger.Info("agent.memory.stored", slog.String("id", id), slog.String("correlation_id", env.CorrelationID))
		return nil
	}
}

// NewDefaults builds one agent per profile. The memory indexer gets the
// store hook when w is set.
func NewDefaults(profiles []Profile, orchestrator Orchestrator, w MemoryWriter, opts ...Option) ([]Agent, error) {
	out := make([]Agent, 0, len(profiles))
	for _, p := range profiles {
		agentOpts := opts
		if p.Name == RoleMemoryIndexer && w != nil {
			agentOpts = append(append([]Option(nil), opts...), WithHook(StoreHook(w, nil)))
		}
		a, err := New(p, orchestrator, agentOpts...)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
