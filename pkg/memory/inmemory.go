// SPDX-License-Identifier: Apache-2.0
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// KeywordScore is the similarity assigned to records whose text contains
// the query verbatim (case-insensitive).
const KeywordScore float32 = 1.0

// InMemoryStore is an in-process VectorStore ranking by cosine similarity.
// It also implements KeywordSearcher with case-insensitive substring
// matching, so exact mentions outrank near neighbours.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*inMemoryCollection
}

type inMemoryCollection struct {
	size   uint64
	points map[string]Point
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string]*inMemoryCollection)}
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *InMemoryStore) EnsureCollection(_ context.Context, name string, vectorSize uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &inMemoryCollection{size: vectorSize, points: make(map[string]Point)}
	}
	return nil
}

// Upsert adds or replaces points.
func (s *InMemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return errors.NotFound("collection", collection)
	}
	for _, p := range points {
		if c.size > 0 && uint64(len(p.Vector)) != c.size {
			return errors.Newf(errors.CodeInvalidInput, "vector for %q has %d dimensions, collection expects %d", p.ID, len(p.Vector), c.size)
		}
	}
	for _, p := range points {
		p.Vector = append([]float32(nil), p.Vector...)
		c.points[p.ID] = p
	}
	return nil
}

// Search ranks every point by cosine similarity to vector.
func (s *InMemoryStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, errors.NotFound("collection", collection)
	}
	results := make([]SearchResult, 0, len(c.points))
	for id, p := range c.points {
		score := Cosine(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: id, Score: score, Point: p})
	}
	return top(results, limit), nil
}

// SearchText returns points whose text contains query.
func (s *InMemoryStore) SearchText(_ context.Context, collection, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, errors.NotFound("collection", collection)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}
	var results []SearchResult
	for id, p := range c.points {
		if strings.Contains(strings.ToLower(p.Text()), needle) {
			results = append(results, SearchResult{ID: id, Score: KeywordScore, Point: p})
		}
	}
	return top(results, limit), nil
}

// Delete removes ids from the collection.
func (s *InMemoryStore) Delete(_ context.Context, collection string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	return nil
}

// Len returns the number of points stored in collection.
func (s *InMemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.points)
	}
	return 0
}

// top sorts by score desc, then id for stable output, and truncates.
func top(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
