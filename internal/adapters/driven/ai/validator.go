package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded once to confirm the configured vector size.
const sampleText = "docqa dimension check"

// ConfigValidator checks provider settings before they are saved.
// Embedding settings are checked with a real request so a dimension mismatch
// is caught before it reaches the vector index.
type ConfigValidator struct {
	// Timeout bounds each provider round trip. Zero uses pingTimeout.
	Timeout time.Duration
}

// NewConfigValidator returns a validator using the default timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{Timeout: pingTimeout}
}

// ValidateEmbedding pings the provider and embeds a sample text, comparing
// the returned vector length with the configured dimensions.
// Unconfigured settings have nothing to check.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	if config.Provider == domain.AIProviderAnthropic {
		return fmt.Errorf("%w: anthropic does not provide embeddings", domain.ErrInvalidInput)
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := v.context()
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, config.Provider, err)
	}
	vectors, err := svc.Embed(ctx, []string{sampleText})
	if err != nil {
		return fmt.Errorf("%w: sample embedding: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("%w: sample returned %d vectors", domain.ErrEmbeddingUnavailable, len(vectors))
	}
	if got := len(vectors[0]); got != config.Dimensions {
		return fmt.Errorf("%w: model %s returns %d dimensions, settings say %d (set embedding.dimensions)",
			domain.ErrInvalidInput, svc.ModelName(), got, config.Dimensions)
	}
	return nil
}

// ValidateLLM pings the generation provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	if config.Provider == domain.AIProviderLocal {
		return fmt.Errorf("%w: the local provider cannot generate text", domain.ErrInvalidInput)
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := v.context()
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrGenerationUnavailable, config.Provider, err)
	}
	return nil
}

func (v *ConfigValidator) context() (context.Context, context.CancelFunc) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = pingTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
