package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaEmbedder_BatchesInOneRequest(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if !strings.HasSuffix(r.URL.Path, "/api/embed") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("got model %q, want nomic-embed-text", req.Model)
		}
		embeddings := make([][]float32, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float32{float32(i), 0, 0}
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, ts.URL)
	texts := []string{"first chunk", "second chunk", "third chunk"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if requests != 1 {
		t.Errorf("got %d requests for %d texts, want one batched request", requests, len(texts))
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if vec[0] != float32(i) {
			t.Errorf("vector %d out of order: got leading component %v", i, vec[0])
		}
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0, 0}}})
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, ts.URL)
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when response has fewer embeddings than texts")
	}
}

func TestOllamaEmbedder_WrongDimension(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, ts.URL)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error when a vector has the wrong dimension")
	}
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("missing-model", 3, ts.URL)
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
