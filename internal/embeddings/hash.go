package embeddings

import (
	"context"
	"encoding/binary"
	"hash/fnv"
)

// HashEmbedder produces deterministic, content-derived embeddings with no
// external dependency. Each vector component is an FNV-1a hash of the text
// together with the component's slot index, mapped into [-1, 1], and the
// whole vector is normalized to unit length.
//
// The vectors carry no semantic meaning, but identical texts always map to
// identical vectors of exactly the configured dimension, including the
// empty string. This is the mandatory fallback when a remote embedding
// model is unavailable, and a supported standalone operating mode.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Name() string {
	return "hash"
}

func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = e.vector(text)
	}
	return results, nil
}

// bucketRange bounds the raw hash bucket before scaling into [-1, 1].
const bucketRange = 2_000_001

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	var slot [4]byte
	for i := range vec {
		h := fnv.New64a()
		h.Write([]byte(text))
		binary.LittleEndian.PutUint32(slot[:], uint32(i))
		h.Write(slot[:])
		bucket := h.Sum64() % bucketRange
		vec[i] = float32(bucket)/1_000_000.0 - 1.0
	}
	Normalize(vec)
	return vec
}
