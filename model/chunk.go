package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents a token-bounded slice of a source document stored in an index.
// Chunks are written once and never mutated; they disappear only when their
// index is deleted.
type Chunk struct {
	ID             uuid.UUID `json:"id"`
	IndexName      string    `json:"index_name"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"embedding,omitempty"`
	SourceDocument string    `json:"source_document"`
	CharOffset     int       `json:"char_offset"`
	TokenCount     int       `json:"token_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentResult holds the parallel outputs of processing one document.
// All four slices always have equal length.
type DocumentResult struct {
	Chunks      []string    `json:"chunks"`
	Embeddings  [][]float32 `json:"embeddings"`
	Offsets     []int       `json:"offsets"`
	TokenCounts []int       `json:"token_counts"`
}

// Empty reports whether processing produced no chunks (empty document).
func (r *DocumentResult) Empty() bool {
	return len(r.Chunks) == 0
}
