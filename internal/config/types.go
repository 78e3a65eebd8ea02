package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGroq   ProviderType = "groq"
	ProviderOllama ProviderType = "ollama"
	ProviderHash   ProviderType = "hash"
)

// IndexBackend selects the vector index implementation.
type IndexBackend string

const (
	BackendMemory  IndexBackend = "memory"
	BackendChromem IndexBackend = "chromem"
)

// Config is the top-level docchat configuration, corresponding to .docchat.yml.
type Config struct {
	Provider          ProviderType    `yaml:"provider" koanf:"provider"`
	Model             string          `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDims     int             `yaml:"embedding_dims" koanf:"embedding_dims"`
	Chunking          ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Retrieval         RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Index             IndexConfig     `yaml:"index" koanf:"index"`
	Server            ServerConfig    `yaml:"server" koanf:"server"`
	Include           []string        `yaml:"include" koanf:"include"`
	Exclude           []string        `yaml:"exclude" koanf:"exclude"`
}

// ChunkingConfig controls how documents are segmented before embedding.
type ChunkingConfig struct {
	Size             int `yaml:"size" koanf:"size"`
	Overlap          int `yaml:"overlap" koanf:"overlap"`
	MaxDocumentChars int `yaml:"max_document_chars" koanf:"max_document_chars"`
}

// RetrievalConfig controls how many chunks are retrieved and the
// relevance cutoff applied to them.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k" koanf:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity" koanf:"min_similarity"`
}

// IndexConfig selects and locates the vector index backend.
type IndexConfig struct {
	Backend IndexBackend `yaml:"backend" koanf:"backend"`
	Dir     string       `yaml:"dir" koanf:"dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port" koanf:"port"`
	DataDir  string `yaml:"data_dir" koanf:"data_dir"`
	AllowAll bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
