package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderLocal runs an ONNX sentence-transformer in process. Embeddings only.
	AIProviderLocal AIProvider = "local"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderLocal:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderLocal:
		return "Local ONNX model (in process)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the fixed vector size D.
	Dimensions int

	// ModelPath is the on-disk model directory (for the local provider).
	ModelPath string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	if e.Provider == AIProviderLocal && e.ModelPath == "" {
		return false
	}
	return e.Dimensions > 0
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is used for answers. Reranking and judging always use 0.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendQdrant   VectorBackend = "qdrant"
	VectorBackendPGVector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendQdrant, VectorBackendPGVector:
		return true
	default:
		return false
	}
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend    VectorBackend
	Collection string
	QdrantURL  string

	// PostgresDSN is the lib/pq connection string for the pgvector backend.
	PostgresDSN string
}

// RetrievalSettings holds retrieval-rerank configuration.
type RetrievalSettings struct {
	TopK      int
	UseChunks int
	UseRerank bool

	// SnippetChars bounds each candidate's text in the rerank prompt.
	SnippetChars int
}

// Options converts the settings to per-call retrieval options.
func (r RetrievalSettings) Options() RetrievalOptions {
	return RetrievalOptions{TopK: r.TopK, UseChunks: r.UseChunks, Rerank: r.UseRerank}
}

// MetricsSettings configures the metrics recorder.
type MetricsSettings struct {
	// LogPath is the JSONL request log.
	LogPath string

	// SQLitePath optionally mirrors records into SQLite for summary queries.
	SQLitePath string

	Pricing Pricing
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Addr           string
	UploadDir      string
	MaxUploadMB    int
	RateLimitRPS   float64
	RateLimitBurst int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkConfig
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Metrics   MetricsSettings
	Server    ServerSettings

	// FeedbackLogPath is the JSONL feedback log.
	FeedbackLogPath string

	// LogFormat is "pretty" or "json".
	LogFormat string
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and come from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkConfig{ChunkSize: 500, Overlap: 100},
		Retrieval: RetrievalSettings{
			TopK:         5,
			UseChunks:    3,
			UseRerank:    true,
			SnippetChars: 400,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4.1-mini",
			Temperature: 0.2,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendMemory,
			Collection: "docs",
			QdrantURL:  "http://localhost:6333",
		},
		Metrics: MetricsSettings{
			LogPath: "logs/requests.jsonl",
			Pricing: DefaultPricing(),
		},
		Server: ServerSettings{
			Addr:           ":8000",
			UploadDir:      "data/raw",
			MaxUploadMB:    20,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		FeedbackLogPath: "logs/feedback.jsonl",
		LogFormat:       "pretty",
	}
}

// Validate checks cross-field constraints.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return fmt.Errorf("%w: chunking.overlap (%d) must be >= 0 and below chunking.chunk_size (%d)",
			ErrInvalidInput, s.Chunking.Overlap, s.Chunking.ChunkSize)
	}
	if s.Retrieval.TopK <= 0 || s.Retrieval.UseChunks <= 0 {
		return fmt.Errorf("%w: retrieval.top_k and retrieval.use_chunks must be positive", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() || s.Embedding.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: embedding.provider %q cannot produce embeddings", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.LLM.Provider.IsValid() || s.LLM.Provider == AIProviderLocal {
		return fmt.Errorf("%w: llm.provider %q cannot generate text", ErrInvalidInput, s.LLM.Provider)
	}
	if !s.Vector.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector.backend %q", ErrInvalidInput, s.Vector.Backend)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderLocal,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderLocal:  "all-MiniLM-L6-v2",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4.1-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Local sentence transformers
		"all-MiniLM-L6-v2": 384,
	}
}
