package config

// embeddingPresets maps each embedding provider to its default model and
// dimension.
type EmbeddingPreset struct {
	Model string
	Dims  int
}

var embeddingPresets = map[ProviderType]EmbeddingPreset{
	ProviderOpenAI: {Model: "text-embedding-3-small", Dims: 1536},
	ProviderOllama: {Model: "nomic-embed-text", Dims: 768},
	ProviderHash:   {Model: "", Dims: 384},
}

// DefaultExcludes are glob patterns excluded from ingestion by default.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGroq,
		Model:             "llama3-8b-8192",
		EmbeddingProvider: ProviderHash,
		EmbeddingModel:    "",
		EmbeddingDims:     384,
		Chunking: ChunkingConfig{
			Size:             800,
			Overlap:          100,
			MaxDocumentChars: 50000,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			MinSimilarity: 0.1,
		},
		Index: IndexConfig{
			Backend: BackendMemory,
			Dir:     "data/index",
		},
		Server: ServerConfig{
			Port:     8000,
			DataDir:  "data",
			AllowAll: true,
		},
		Include: []string{"**"},
		Exclude: DefaultExcludes,
	}
}

// GetEmbeddingPreset returns the default model and dimension for the
// given embedding provider. Unknown providers fall back to the hash
// preset.
func GetEmbeddingPreset(provider ProviderType) EmbeddingPreset {
	if preset, ok := embeddingPresets[provider]; ok {
		return preset
	}
	return embeddingPresets[ProviderHash]
}
