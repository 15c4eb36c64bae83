package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)
	svc.SetEnvLookup(func(k string) string { return env[k] })
	return svc, store
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc, _ := newSettings(nil)

	got, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *got)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}

func TestSettingsService_GetFromConfig(t *testing.T) {
	svc, store := newSettings(nil)
	require.NoError(t, store.Set("chunking.chunk_size", int64(300)))
	require.NoError(t, store.Set("chunking.overlap", int64(30)))
	require.NoError(t, store.Set("retrieval.use_rerank", false))
	require.NoError(t, store.Set("llm.temperature", 0.7))
	require.NoError(t, store.Set("metrics.cost_per_1k_input", int64(1)))
	require.NoError(t, store.Set("vector.backend", "qdrant"))

	got, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.ChunkConfig{ChunkSize: 300, Overlap: 30}, got.Chunking)
	assert.False(t, got.Retrieval.UseRerank)
	assert.InDelta(t, 0.7, got.LLM.Temperature, 1e-9)
	assert.InDelta(t, 1.0, got.Metrics.Pricing.CostPer1KInput, 1e-9)
	assert.Equal(t, domain.VectorBackendQdrant, got.Vector.Backend)
}

func TestSettingsService_GetInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"wrong type", "retrieval.top_k", "many"},
		{"overlap too large", "chunking.overlap", int64(500)},
		{"unknown backend", "vector.backend", "faiss"},
		{"embedding from anthropic", "embedding.provider", "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newSettings(nil)
			require.NoError(t, store.Set(tt.key, tt.value))

			_, err := svc.Get()

			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestSettingsService_EnvOverrides(t *testing.T) {
	svc, store := newSettings(map[string]string{
		"OPENAI_API_KEY":           "sk-env",
		"ANTHROPIC_API_KEY":        "ak-env",
		"DOCQA_LLM_PROVIDER":       "anthropic",
		"DOCQA_VECTOR_BACKEND":     "pgvector",
		"DOCQA_PG_DSN":             "postgres://localhost/docqa",
		"DOCQA_EMBEDDING_PROVIDER": "ollama",
		"OLLAMA_HOST":              "http://gpu-box:11434",
	})
	require.NoError(t, store.Set("vector.backend", "qdrant"))

	got, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, got.LLM.Provider)
	assert.Equal(t, "ak-env", got.LLM.APIKey)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], got.LLM.Model)
	assert.Equal(t, domain.AIProviderOllama, got.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", got.Embedding.Model)
	assert.Equal(t, 768, got.Embedding.Dimensions)
	assert.Equal(t, "http://gpu-box:11434", got.Embedding.BaseURL)
	assert.Empty(t, got.Embedding.APIKey)
	assert.Equal(t, domain.VectorBackendPGVector, got.Vector.Backend)
	assert.Equal(t, "postgres://localhost/docqa", got.Vector.PostgresDSN)
}

func TestSettingsService_ConfigKeyBeatsEnvKey(t *testing.T) {
	svc, store := newSettings(map[string]string{"OPENAI_API_KEY": "sk-env"})
	require.NoError(t, store.Set("llm.api_key", "sk-file"))

	got, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-file", got.LLM.APIKey)
	assert.Equal(t, "sk-env", got.Embedding.APIKey)
}

func TestSettingsService_Set(t *testing.T) {
	t.Run("parses strings", func(t *testing.T) {
		svc, store := newSettings(nil)

		require.NoError(t, svc.Set("retrieval.top_k", "8"))
		require.NoError(t, svc.Set("retrieval.use_rerank", "false"))
		require.NoError(t, svc.Set("llm.temperature", "0.5"))

		v, _ := store.Get("retrieval.top_k")
		assert.Equal(t, 8, v)
		got, err := svc.Get()
		require.NoError(t, err)
		assert.Equal(t, 8, got.Retrieval.TopK)
		assert.False(t, got.Retrieval.UseRerank)
	})

	t.Run("unknown key", func(t *testing.T) {
		svc, _ := newSettings(nil)

		err := svc.Set("search.mode", "hybrid")

		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects overlap at chunk size", func(t *testing.T) {
		svc, store := newSettings(nil)

		err := svc.Set("chunking.overlap", 500)

		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		_, exists := store.Get("chunking.overlap")
		assert.False(t, exists)
	})

	t.Run("rejects bad enum", func(t *testing.T) {
		svc, _ := newSettings(nil)

		assert.Error(t, svc.Set("logging.format", "xml"))
		assert.Error(t, svc.Set("llm.provider", "local"))
	})
}

func TestSettingsService_DisplayMasksSecrets(t *testing.T) {
	svc, _ := newSettings(map[string]string{"OPENAI_API_KEY": "sk-secret"})

	pairs, err := svc.Display()

	require.NoError(t, err)
	require.Len(t, pairs, len(SettingKeys()))
	for _, p := range pairs {
		assert.NotContains(t, p[1], "sk-secret", p[0])
	}
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), &mockAIValidator{llmErr: errors.New("401")})
	svc.SetEnvLookup(func(string) string { return "" })

	assert.NoError(t, svc.ValidateEmbeddingConfig())
	assert.Error(t, svc.ValidateLLMConfig())
}
