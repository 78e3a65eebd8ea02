package embeddings

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestHashEmbedder_Dimensions(t *testing.T) {
	ctx := context.Background()

	for _, dims := range []int{8, 64, 384} {
		e := NewHashEmbedder(dims)
		if e.Dimensions() != dims {
			t.Errorf("Dimensions: got %d, want %d", e.Dimensions(), dims)
		}

		vecs, err := e.Embed(ctx, []string{"hello", "", "a much longer text with many words in it"})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if len(vecs) != 3 {
			t.Fatalf("got %d vectors, want 3", len(vecs))
		}
		for i, v := range vecs {
			if len(v) != dims {
				t.Errorf("vector %d: got %d components, want %d", i, len(v), dims)
			}
		}
	}
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)

	first, err := e.Embed(ctx, []string{"the same text", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := e.Embed(ctx, []string{"the same text", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("hash embeddings differ across calls for identical input")
	}
}

func TestHashEmbedder_DistinctTexts(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)

	vecs, err := e.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(384)

	vecs, err := e.Embed(ctx, []string{"normalize me", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vecs {
		var sum float64
		for _, c := range v {
			sum += float64(c) * float64(c)
		}
		norm := math.Sqrt(sum)
		if math.Abs(norm-1.0) > 1e-5 {
			t.Errorf("vector %d has norm %f, want 1.0", i, norm)
		}
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	vec := make([]float32, 4)
	Normalize(vec)
	for i, v := range vec {
		if v != 0 {
			t.Errorf("component %d: got %f, want 0", i, v)
		}
	}
}

func TestNormalize_SelfSimilarity(t *testing.T) {
	vec := []float32{3, 4, 0}
	Normalize(vec)

	var dot float64
	for _, v := range vec {
		dot += float64(v) * float64(v)
	}
	if math.Abs(dot-1.0) > 1e-6 {
		t.Errorf("self-similarity after normalize: got %f, want 1.0", dot)
	}
}
