// Package rag orchestrates segmentation, embedding, and the vector index
// into an ingest/query pipeline.
package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"docchat/internal/embeddings"
	"docchat/internal/splitter"
	"docchat/internal/vectordb"
)

// embedBatchSize bounds how many chunk texts go to the embedder per call,
// so one huge document neither monopolizes memory nor turns into a single
// giant remote request.
const embedBatchSize = 32

// Pipeline wires an embedder and a vector store into the two operations
// the collaborators need: Ingest for the upload path and Query for the
// chat path. One pipeline instance is shared across request handlers.
type Pipeline struct {
	embedder embeddings.Embedder
	store    vectordb.Store

	mu   sync.Mutex
	docs []vectordb.DocumentInfo
}

// New creates a pipeline. The embedder's dimension must match the
// store's; mixing dimensions within one index is an error state.
func New(embedder embeddings.Embedder, store vectordb.Store) (*Pipeline, error) {
	if embedder.Dimensions() != store.Dimensions() {
		return nil, fmt.Errorf("%w: embedder %q has dimension %d, index has %d",
			vectordb.ErrDimensionMismatch, embedder.Name(), embedder.Dimensions(), store.Dimensions())
	}
	return &Pipeline{embedder: embedder, store: store}, nil
}

// Ingest embeds the chunks of one document and adds them to the index.
// It is atomic with respect to the document: all embeddings are computed
// before the index is touched, and the single Add is all-or-nothing, so
// an embedding failure or cancellation never leaves a partially indexed
// document. Returns the number of chunks added.
func (p *Pipeline) Ingest(ctx context.Context, chunks []splitter.Chunk, documentID, filename string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedder.Embed(ctx, texts[i:end])
		if err != nil {
			return 0, fmt.Errorf("embedding chunks %d-%d of %s: %w", i, end-1, filename, err)
		}
		vectors = append(vectors, batch...)
	}

	if err := p.store.Add(ctx, chunks, vectors, documentID, filename); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", filename, err)
	}

	p.mu.Lock()
	p.docs = append(p.docs, vectordb.DocumentInfo{
		DocumentID: documentID,
		Filename:   filename,
		Chunks:     len(chunks),
	})
	p.mu.Unlock()

	log.Debug().Str("filename", filename).Str("document_id", documentID).
		Int("chunks", len(chunks)).Msg("document ingested")
	return len(chunks), nil
}

// Query embeds the query text with the same embedder used at ingestion
// and returns the topK highest-scoring chunks. An index that has never
// been ingested into yields an empty result, which callers interpret as
// "no relevant information".
func (p *Pipeline) Query(ctx context.Context, text string, topK int) ([]vectordb.SearchResult, error) {
	if p.store.Size() == 0 {
		return nil, nil
	}

	vectors, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	results, err := p.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

// Clear wipes the index and the document registry.
func (p *Pipeline) Clear(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	p.docs = nil
	p.mu.Unlock()
	return nil
}

// Persist writes the index state under dir.
func (p *Pipeline) Persist(ctx context.Context, dir string) error {
	return p.store.Persist(ctx, dir)
}

// Load restores the index state from dir and rebuilds the document
// registry for backends that can enumerate their contents.
func (p *Pipeline) Load(ctx context.Context, dir string) error {
	if err := p.store.Load(ctx, dir); err != nil {
		return err
	}
	if lister, ok := p.store.(vectordb.DocumentLister); ok {
		p.mu.Lock()
		p.docs = lister.ListDocuments()
		p.mu.Unlock()
	}
	return nil
}

// Size returns the number of indexed chunks.
func (p *Pipeline) Size() int {
	return p.store.Size()
}

// Documents lists the documents ingested into the index.
func (p *Pipeline) Documents() []vectordb.DocumentInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	docs := make([]vectordb.DocumentInfo, len(p.docs))
	copy(docs, p.docs)
	return docs
}
