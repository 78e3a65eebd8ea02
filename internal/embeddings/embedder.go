// Package embeddings converts text into fixed-dimension vectors.
//
// A primary semantic embedder (OpenAI or Ollama) can be wrapped in a
// FailoverEmbedder so that remote failures degrade to the deterministic
// HashEmbedder instead of failing ingestion.
package embeddings

import (
	"context"
	"math"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one embedding per input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of components in each vector.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// Normalize scales vec to unit length in place. A zero vector is left
// unchanged so that its similarity to any query is zero.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
