// SPDX-License-Identifier: Apache-2.0
package memory

import "context"

// VectorStore defines the interface for a vector database.
type VectorStore interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	// Upsert adds or updates points in the vector store.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the points nearest to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
	// Delete removes the points with the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, collection string, ids ...string) error
}

// KeywordSearcher is implemented by stores that can also match raw text.
// VectorMemory merges keyword hits with vector hits when available.
type KeywordSearcher interface {
	SearchText(ctx context.Context, collection, query string, limit int) ([]SearchResult, error)
}

// Point represents a data point in the vector store.
type Point struct {
	ID        string                 `json:"id"`
	Vector    []float32              `json:"vector"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

// Text returns the stored source text of the point.
func (p Point) Text() string {
	s, _ := p.Payload[PayloadText].(string)
	return s
}

// SearchResult represents a result from a vector search.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder defines the interface for converting text to vectors.
type Embedder interface {
	// Embed converts a text string into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Payload keys written by VectorMemory.
const (
	PayloadText      = "text"
	PayloadTimestamp = "timestamp"
	PayloadModel     = "model"
)
