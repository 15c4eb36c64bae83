// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	localembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Options tune Init.
type Options struct {
	// RateLimit throttles both providers. The zero value uses package defaults.
	RateLimit ratelimit.Config

	// SkipPing skips connectivity checks, e.g. for offline commands.
	SkipPing bool
}

// Init builds the embedding service, LLM service and vector index for settings.
// Providers are wrapped with rate limiting. On error everything already
// created is closed.
func Init(ctx context.Context, settings domain.AppSettings, opts Options) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := createAndMaybeValidateEmbedding(&settings.Embedding, !opts.SkipPing)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured (set OPENAI_API_KEY or embedding.provider)",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	result.EmbeddingService = ratelimit.WrapEmbedding(embedder, opts.RateLimit)

	llm, err := createAndMaybeValidateLLM(&settings.LLM, !opts.SkipPing)
	if err != nil {
		result.Close()
		return nil, err
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: llm provider %q is not configured (set OPENAI_API_KEY, ANTHROPIC_API_KEY or llm.provider)",
			domain.ErrGenerationUnavailable, settings.LLM.Provider)
	}
	result.LLMService = ratelimit.WrapLLM(llm, opts.RateLimit)

	index, err := CreateVectorIndex(ctx, settings.Vector, embedder.Dimensions())
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorIndex = index

	logger.Info("AI services ready: embedding=%s/%s llm=%s/%s index=%s",
		settings.Embedding.Provider, embedder.ModelName(), settings.LLM.Provider, llm.ModelName(), settings.Vector.Backend)
	return result, nil
}

func createAndMaybeValidateEmbedding(settings *domain.EmbeddingSettings, ping bool) (driven.EmbeddingService, error) {
	if ping {
		return CreateAndValidateEmbeddingService(settings)
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

func createAndMaybeValidateLLM(settings *domain.LLMSettings, ping bool) (driven.LLMService, error) {
	if ping {
		return CreateAndValidateLLMService(settings)
	}
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa settings show' to check the configuration",
			domain.ErrEmbeddingUnavailable, err)
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa settings show' to check the configuration",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa settings show' to check the configuration",
			domain.ErrGenerationUnavailable, err)
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa settings show' to check the configuration",
			domain.ErrGenerationUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderLocal:
		return createLocalEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorIndex opens the configured backend with a fresh collection.
func CreateVectorIndex(ctx context.Context, settings domain.VectorSettings, dimensions int) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		return memory.NewVectorIndex(dimensions), nil

	case domain.VectorBackendQdrant:
		idx, err := qdrant.New(ctx, qdrant.Config{
			URL:        settings.QdrantURL,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("open qdrant index: %w", err)
		}
		return idx, nil

	case domain.VectorBackendPGVector:
		idx, err := pgvector.New(ctx, pgvector.Config{
			DSN:        settings.PostgresDSN,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("open pgvector index: %w", err)
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createLocalEmbedding loads the in-process model, downloading it on first use.
func createLocalEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := localembed.NewEmbeddingService(localembed.Config{
		ModelPath:  settings.ModelPath,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		Download:   true,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
