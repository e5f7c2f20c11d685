// SPDX-License-Identifier: Apache-2.0
package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "archena-memory"

// VectorMemory implements Manager using a vector store and embedder.
// The collection is created lazily on first use, sized from the first
// embedding produced.
type VectorMemory struct {
	store      VectorStore
	embedder   Embedder
	collection string
	model      string
	threshold  float32
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	ready bool
}

// Option configures a VectorMemory.
type Option func(*VectorMemory)

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(vm *VectorMemory) {
		if name != "" {
			vm.collection = name
		}
	}
}

// WithScoreThreshold drops vector hits scoring below threshold.
func WithScoreThreshold(threshold float32) Option {
	return func(vm *VectorMemory) { vm.threshold = threshold }
}

// WithModelName records the embedding model in stored payloads.
func WithModelName(model string) Option {
	return func(vm *VectorMemory) { vm.model = model }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(vm *VectorMemory) {
		if logger != nil {
			vm.logger = logger
		}
	}
}

// NewVectorMemory creates a new VectorMemory instance.
func NewVectorMemory(store VectorStore, embedder Embedder, opts ...Option) *VectorMemory {
	vm := &VectorMemory{
		store:      store,
		embedder:   embedder,
		collection: DefaultCollection,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Collection returns the collection name.
func (vm *VectorMemory) Collection() string { return vm.collection }

// Initialize ensures the collection exists with the embedder's dimension.
// Store and Search call it on demand; calling it at startup surfaces
// backend problems early.
// A failed attempt is retried on the next call.
func (vm *VectorMemory) Initialize(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.ready {
		return nil
	}
	vec, err := vm.embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return wrap("embedding probe failed", err)
	}
	if err := vm.store.EnsureCollection(ctx, vm.collection, uint64(len(vec))); err != nil {
		return wrap("ensure collection failed", err).WithContext("collection", vm.collection)
	}
	vm.ready = true
	return nil
}

// Store embeds text and upserts it under id.
func (vm *VectorMemory) Store(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.CodeInvalidInput, "memory text cannot be empty", nil).WithContext("id", id)
	}
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.CodeInvalidInput, "memory id cannot be empty", nil)
	}
	if err := vm.Initialize(ctx); err != nil {
		return err
	}

	vm.logger.Debug("memory.store.embed", slog.String("id", id))
	vector, err := vm.embedder.Embed(ctx, text)
	if err != nil {
		return wrap("failed to embed text", err).WithContext("id", id)
	}

	ts := vm.now().Unix()
	payload := map[string]interface{}{
		PayloadText:      text,
		PayloadTimestamp: ts,
	}
	if vm.model != "" {
		payload[PayloadModel] = vm.model
	}
	point := Point{ID: id, Vector: vector, Payload: payload, Timestamp: ts}
	if err := vm.store.Upsert(ctx, vm.collection, []Point{point}); err != nil {
		return wrap("failed to store point", err).WithContext("id", id)
	}

	vm.logger.Info("memory.store",
		slog.String("id", id),
		slog.Int("dimensions", len(vector)),
	)
	return nil
}

// Search embeds query and returns the closest records.
func (vm *VectorMemory) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []Record{}, nil
	}
	if err := vm.Initialize(ctx); err != nil {
		return nil, err
	}

	vector, err := vm.embedder.Embed(ctx, query)
	if err != nil {
		return nil, wrap("failed to embed query", err)
	}
	hits, err := vm.store.Search(ctx, vm.collection, vector, limit, vm.threshold)
	if err != nil {
		return nil, wrap("failed to search", err)
	}
	if ks, ok := vm.store.(KeywordSearcher); ok {
		more, err := ks.SearchText(ctx, vm.collection, query, limit)
		if err != nil {
			return nil, wrap("failed to search text", err)
		}
		hits = merge(hits, more)
	}

	records := make([]Record, 0, len(hits))
	for _, h := range hits {
		records = append(records, toRecord(h))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Similarity > records[j].Similarity
	})
	if len(records) > limit {
		records = records[:limit]
	}

	vm.logger.Info("memory.search",
		slog.Int("limit", limit),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// Delete removes id from the store.
func (vm *VectorMemory) Delete(ctx context.Context, id string) error {
	if err := vm.Initialize(ctx); err != nil {
		return err
	}
	vm.logger.Debug("memory.delete", slog.String("id", id))
	if err := vm.store.Delete(ctx, vm.collection, id); err != nil {
		return wrap("failed to delete point", err).WithContext("id", id)
	}
	return nil
}

// merge keeps the best score per id.
func merge(a, b []SearchResult) []SearchResult {
	index := make(map[string]int, len(a)+len(b))
	out := make([]SearchResult, 0, len(a)+len(b))
	for _, r := range append(a, b...) {
		if i, ok := index[r.ID]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func toRecord(h SearchResult) Record {
	rec := Record{
		ID:         h.ID,
		Content:    h.Point.Text(),
		Similarity: float64(h.Score),
	}
	for k, v := range h.Point.Payload {
		if k == PayloadText {
			continue
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}
		rec.Metadata[k] = v
	}
	return rec
}

// wrap tags backend failures with CodeMemoryError while keeping
// cancellation and already classified errors intact.
func wrap(msg string, err error) *errors.KernelError {
	if errors.IsCanceled(err) {
		return errors.New(errors.CodeCanceled, msg, err)
	}
	if ke := errors.AsKernelError(err); ke.Code != errors.CodeInternal {
		return errors.New(ke.Code, msg, err).WithRecoverable(ke.Recoverable)
	}
	return errors.New(errors.CodeMemoryError, msg, err)
}
