// Package vectordb stores chunk embeddings and serves similarity search.
//
// Two backends implement the same Store contract: an in-memory flat index
// with explicit cosine scoring and file+SQLite persistence, and an
// embedded chromem-go index. The backend is selected by configuration.
package vectordb

import (
	"context"
	"errors"

	"docchat/internal/splitter"
)

// ErrDimensionMismatch is returned when a vector's component count does
// not equal the index dimension. Vectors are never silently padded or
// truncated.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrNoPersistedState is returned by Load when the persisted artifacts
// are missing or incomplete. The store is reset to empty in that case.
var ErrNoPersistedState = errors.New("no persisted index state")

// Metadata attributes a stored chunk to its source document.
type Metadata struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
}

// SearchResult is a ranked chunk returned from a query. Score is cosine
// similarity on a [-1, 1] scale; higher means more relevant.
type SearchResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float32  `json:"score"`
}

// DocumentInfo summarizes one ingested document.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}

// Store is the vector index contract shared by all backends.
//
// Mutations (Add, Clear) are serialized by the implementation; Search may
// run concurrently and observes a consistent snapshot. The dimension is
// fixed at construction and never changes for the lifetime of the index.
type Store interface {
	// Add appends one indexed vector per chunk. chunks and embeddings
	// must have equal length and every vector must match the index
	// dimension; the call is all-or-nothing.
	Add(ctx context.Context, chunks []splitter.Chunk, embeddings [][]float32, documentID, filename string) error

	// Search returns the topK highest-scoring chunks for the query
	// vector in descending score order, ties broken by insertion order.
	// Results below the minimum similarity threshold are dropped after
	// ranking. An empty index yields an empty result, not an error.
	Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error)

	// Clear resets the store to empty with the same dimension. Positions
	// assigned to later adds are never reused.
	Clear(ctx context.Context) error

	// Persist writes the full index state under dir.
	Persist(ctx context.Context, dir string) error

	// Load replaces the store contents from dir. On missing or corrupt
	// state the store is reset to empty and the failure is returned.
	Load(ctx context.Context, dir string) error

	// Size returns the number of stored vectors.
	Size() int

	// Dimensions returns the fixed vector dimension.
	Dimensions() int
}

// DocumentLister is an optional capability for backends that can
// enumerate the documents they hold.
type DocumentLister interface {
	ListDocuments() []DocumentInfo
}
