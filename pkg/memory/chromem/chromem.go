// SPDX-License-Identifier: Apache-2.0
// Package chromem provides an embedded memory.VectorStore backed by
// chromem-go, optionally persisted to a directory.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
	"github.com/philippgille/chromem-go"
)

// Store implements memory.VectorStore on a chromem database.
type Store struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New returns a store. An empty path keeps everything in memory;
// otherwise the database is persisted under path.
func New(path string) (*Store, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, errors.New(errors.CodeMemoryError, "failed to open chromem database", err).
				WithContext("path", path)
		}
	}
	return &Store{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

// Vectors are always computed by the caller's embedder.
func identityEmbed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("chromem store only accepts precomputed embeddings")
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "failed to get collection", err).WithContext("collection", name)
	}
	s.collections[name] = col
	return col, nil
}

// EnsureCollection creates the collection if needed. chromem collections
// are dimension agnostic so vectorSize is ignored.
func (s *Store) EnsureCollection(_ context.Context, name string, _ uint64) error {
	_, err := s.collection(name)
	return err
}

// Upsert adds or replaces documents.
func (s *Store) Upsert(ctx context.Context, collection string, points []memory.Point) error {
	if len(points) == 0 {
		return nil
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, 0, len(points))
	for _, p := range points {
		meta := make(map[string]string, len(p.Payload))
		for k, v := range p.Payload {
			if k == memory.PayloadText {
				continue
			}
			meta[k] = fmt.Sprint(v)
		}
		docs = append(docs, chromem.Document{
			ID:        p.ID,
			Content:   p.Text(),
			Metadata:  meta,
			Embedding: p.Vector,
		})
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return errors.New(errors.CodeMemoryError, "failed to upsert documents", err).WithContext("collection", collection)
	}
	return nil
}

// Search queries the collection by embedding.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]memory.SearchResult, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	// chromem rejects nResults larger than the collection.
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}
	res, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "chromem query failed", err).WithContext("collection", collection)
	}

	out := make([]memory.SearchResult, 0, len(res))
	for _, r := range res {
		if r.Similarity < scoreThreshold {
			continue
		}
		out = append(out, memory.SearchResult{
			ID:    r.ID,
			Score: r.Similarity,
			Point: memory.Point{
				ID:        r.ID,
				Payload:   payload(r.Content, r.Metadata),
				Timestamp: timestamp(r.Metadata),
			},
		})
	}
	return out, nil
}

// Delete removes documents by id.
func (s *Store) Delete(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return errors.New(errors.CodeMemoryError, "failed to delete documents", err).WithContext("collection", collection)
	}
	return nil
}

func payload(content string, meta map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if ts := timestamp(meta); ts != 0 {
		out[memory.PayloadTimestamp] = ts
	}
	out[memory.PayloadText] = content
	return out
}

func timestamp(meta map[string]string) int64 {
	ts, _ := strconv.ParseInt(meta[memory.PayloadTimestamp], 10, 64)
	return ts
}

var _ memory.VectorStore = (*Store)(nil)
