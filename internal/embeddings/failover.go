package embeddings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FailoverEmbedder wraps a primary embedder with a deterministic hash
// fallback of the same dimension. When the primary fails or returns a
// malformed batch, the whole batch is re-embedded with the fallback so
// the caller never observes a partial failure and every vector in the
// index shares one dimension.
type FailoverEmbedder struct {
	primary  Embedder
	fallback *HashEmbedder
}

// NewFailoverEmbedder wraps primary with a hash fallback at the primary's
// dimension.
func NewFailoverEmbedder(primary Embedder) *FailoverEmbedder {
	return &FailoverEmbedder{
		primary:  primary,
		fallback: NewHashEmbedder(primary.Dimensions()),
	}
}

func (e *FailoverEmbedder) Name() string {
	return e.primary.Name() + "+fallback"
}

func (e *FailoverEmbedder) Dimensions() int {
	return e.primary.Dimensions()
}

func (e *FailoverEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.primary.Embed(ctx, texts)
	if err == nil {
		err = validateBatch(vectors, len(texts), e.primary.Dimensions())
	}
	if err == nil {
		return vectors, nil
	}

	// Context cancellation is the caller's decision, not a model failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Warn().Err(err).Str("embedder", e.primary.Name()).
		Msg("primary embedding failed, substituting hash fallback")

	vectors, fbErr := e.fallback.Embed(ctx, texts)
	if fbErr != nil {
		return nil, fmt.Errorf("primary embedding failed (%v) and fallback failed: %w", err, fbErr)
	}
	return vectors, nil
}

// validateBatch rejects responses with the wrong count or dimension, which
// are treated the same as a transport failure.
func validateBatch(vectors [][]float32, count, dims int) error {
	if len(vectors) != count {
		return fmt.Errorf("embedder returned %d vectors, expected %d", len(vectors), count)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("vector %d has %d components, expected %d", i, len(v), dims)
		}
	}
	return nil
}
