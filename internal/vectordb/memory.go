package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docchat/internal/splitter"
)

// record is one indexed vector plus the chunk it came from.
type record struct {
	pos     uint64
	content string
	meta    Metadata
	vector  []float32
}

// MemoryStore is a flat in-memory index scoring every stored vector with
// explicit cosine similarity. A single RWMutex gives one-writer
// semantics for Add/Clear while allowing concurrent searches.
type MemoryStore struct {
	mu            sync.RWMutex
	dims          int
	minSimilarity float32
	nextPos       uint64
	records       []record
}

// NewMemoryStore creates an empty in-memory index with the given fixed
// dimension and minimum similarity threshold.
func NewMemoryStore(dims int, minSimilarity float32) *MemoryStore {
	return &MemoryStore{
		dims:          dims,
		minSimilarity: minSimilarity,
	}
}

func (s *MemoryStore) Dimensions() int { return s.dims }

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Add(_ context.Context, chunks []splitter.Chunk, embeddings [][]float32, documentID, filename string) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	// Validate the whole batch before touching the index so a bad vector
	// never leaves a partially added document behind.
	for i, vec := range embeddings {
		if len(vec) != s.dims {
			return fmt.Errorf("%w: vector %d has %d components, index has %d", ErrDimensionMismatch, i, len(vec), s.dims)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range chunks {
		s.records = append(s.records, record{
			pos:     s.nextPos,
			content: chunk.Content,
			meta: Metadata{
				DocumentID: documentID,
				Filename:   filename,
				ChunkIndex: chunk.ChunkIndex,
				StartPos:   chunk.StartPos,
				EndPos:     chunk.EndPos,
			},
			vector: embeddings[i],
		})
		s.nextPos++
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, queryVector []float32, topK int) ([]SearchResult, error) {
	if len(queryVector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d components, index has %d", ErrDimensionMismatch, len(queryVector), s.dims)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 || topK <= 0 {
		return nil, nil
	}

	scored := make([]SearchResult, len(s.records))
	for i, rec := range s.records {
		scored[i] = SearchResult{
			Content:  rec.content,
			Metadata: rec.meta,
			Score:    cosine(queryVector, rec.vector),
		}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	scored = scored[:topK]

	// Threshold filtering happens after ranking so the reported count
	// reflects only qualifying results.
	results := scored[:0:0]
	for _, r := range scored {
		if r.Score > s.minSimilarity {
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// nextPos is intentionally not reset: positions are never reused.
	s.records = nil
	return nil
}

// ListDocuments enumerates the distinct documents currently indexed, in
// first-insertion order.
func (s *MemoryStore) ListDocuments() []DocumentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var order []string
	counts := make(map[string]*DocumentInfo)
	for _, rec := range s.records {
		info, ok := counts[rec.meta.DocumentID]
		if !ok {
			info = &DocumentInfo{DocumentID: rec.meta.DocumentID, Filename: rec.meta.Filename}
			counts[rec.meta.DocumentID] = info
			order = append(order, rec.meta.DocumentID)
		}
		info.Chunks++
	}

	docs := make([]DocumentInfo, 0, len(order))
	for _, id := range order {
		docs = append(docs, *counts[id])
	}
	return docs
}

// cosine computes cosine similarity between two equal-length vectors.
// Either vector having zero norm yields similarity 0.
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
