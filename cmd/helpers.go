package cmd

import (
	"fmt"
	"os"

	"docchat/internal/config"
	"docchat/internal/embeddings"
	"docchat/internal/llm"
	"docchat/internal/rag"
	"docchat/internal/vectordb"
)

// openAIEmbedRPM caps embedding requests against the OpenAI API.
const openAIEmbedRPM = 300

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// This is the shared version used by ingest, query, serve, and mcp commands.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = config.ProviderHash
	}
	preset := config.GetEmbeddingPreset(provider)
	model := cfg.EmbeddingModel
	if model == "" {
		model = preset.Model
	}
	dims := cfg.EmbeddingDims
	if dims <= 0 {
		dims = preset.Dims
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		limited := embeddings.NewRateLimitedEmbedder(
			embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), openAIEmbedRPM)
		return embeddings.NewFailoverEmbedder(limited), nil
	case config.ProviderOllama:
		return embeddings.NewFailoverEmbedder(embeddings.NewOllamaEmbedder(model, dims, "")), nil
	case config.ProviderHash:
		return embeddings.NewHashEmbedder(dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// createStoreFromConfig creates the vector store selected by the index backend.
func createStoreFromConfig(cfg *config.Config, embedder embeddings.Embedder) (vectordb.Store, error) {
	minSim := float32(cfg.Retrieval.MinSimilarity)
	switch cfg.Index.Backend {
	case config.BackendChromem:
		return vectordb.NewChromemStore(embedder.Dimensions(), minSim)
	case config.BackendMemory, "":
		return vectordb.NewMemoryStore(embedder.Dimensions(), minSim), nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Index.Backend)
	}
}

// createPipelineFromConfig wires the embedder and vector store into a
// retrieval pipeline.
func createPipelineFromConfig(cfg *config.Config) (*rag.Pipeline, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := createStoreFromConfig(cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	return rag.New(embedder, store)
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model)
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
