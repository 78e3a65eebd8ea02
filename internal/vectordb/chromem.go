package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"docchat/internal/splitter"
)

const collectionName = "documents"

const chromemFile = "chromem.gob.gz"

// ChromemStore implements Store on top of the embedded chromem-go index.
// Vectors are supplied explicitly, so no embedding function is attached
// to the collection and queries always search by embedding.
type ChromemStore struct {
	mu            sync.Mutex
	db            *chromem.DB
	collection    *chromem.Collection
	dims          int
	minSimilarity float32
}

// NewChromemStore creates a new in-memory chromem-backed index with the
// given fixed dimension and minimum similarity threshold.
func NewChromemStore(dims int, minSimilarity float32) (*ChromemStore, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemStore{
		db:            db,
		collection:    col,
		dims:          dims,
		minSimilarity: minSimilarity,
	}, nil
}

func (s *ChromemStore) Dimensions() int { return s.dims }

func (s *ChromemStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Count()
}

func (s *ChromemStore) Add(ctx context.Context, chunks []splitter.Chunk, embeddings [][]float32, documentID, filename string) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != s.dims {
			return fmt.Errorf("%w: vector %d has %d components, index has %d", ErrDimensionMismatch, i, len(vec), s.dims)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-%d", documentID, chunk.ChunkIndex),
			Content:   chunk.Content,
			Embedding: embeddings[i],
			Metadata: map[string]string{
				"document_id": documentID,
				"filename":    filename,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
				"start_pos":   strconv.Itoa(chunk.StartPos),
				"end_pos":     strconv.Itoa(chunk.EndPos),
			},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error) {
	if len(queryVector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d components, index has %d", ErrDimensionMismatch, len(queryVector), s.dims)
	}

	s.mu.Lock()
	col := s.collection
	s.mu.Unlock()

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, queryVector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity <= s.minSimilarity {
			continue
		}
		chunkIndex, _ := strconv.Atoi(r.Metadata["chunk_index"])
		startPos, _ := strconv.Atoi(r.Metadata["start_pos"])
		endPos, _ := strconv.Atoi(r.Metadata["end_pos"])
		searchResults = append(searchResults, SearchResult{
			Content: r.Content,
			Metadata: Metadata{
				DocumentID: r.Metadata["document_id"],
				Filename:   r.Metadata["filename"],
				ChunkIndex: chunkIndex,
				StartPos:   startPos,
				EndPos:     endPos,
			},
			Score: r.Similarity,
		})
	}
	return searchResults, nil
}

func (s *ChromemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("chromem delete collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("chromem recreate collection: %w", err)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.ExportToFile(filepath.Join(dir, chromemFile), true, ""); err != nil {
		return fmt.Errorf("chromem export: %w", err)
	}
	return nil
}

func (s *ChromemStore) Load(_ context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(dir, chromemFile)
	if _, err := os.Stat(path); err != nil {
		s.reset()
		return fmt.Errorf("%w: %s", ErrNoPersistedState, dir)
	}

	fresh := chromem.NewDB()
	if err := fresh.ImportFromFile(path, ""); err != nil {
		s.reset()
		return fmt.Errorf("chromem import (corrupt index?): %w", err)
	}
	col := fresh.GetCollection(collectionName, nil)
	if col == nil {
		s.reset()
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.db = fresh
	s.collection = col
	return nil
}

// reset replaces the database with a fresh empty one. Callers must hold mu.
func (s *ChromemStore) reset() {
	db := chromem.NewDB()
	col, _ := db.GetOrCreateCollection(collectionName, nil, nil)
	s.db = db
	s.collection = col
}
