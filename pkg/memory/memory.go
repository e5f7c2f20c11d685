// SPDX-License-Identifier: Apache-2.0
// Package memory provides semantic memory for the reasoning loop: a
// Manager that embeds text and ranks stored records by similarity, backed
// by a pluggable VectorStore (in-process, chromem or qdrant).
package memory

import "context"

// Record is a stored memory entry returned by a search.
type Record struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Manager stores text under an id and retrieves the records most similar
// to a query.
type Manager interface {
	// Store embeds text and saves it under id, replacing any previous record.
	Store(ctx context.Context, id, text string) error
	// Search returns at most limit records ordered by similarity, best first.
	// A blank query returns no records.
	Search(ctx context.Context, query string, limit int) ([]Record, error)
	// Delete removes the record with id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
