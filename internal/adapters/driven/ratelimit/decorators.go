package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
)

// retrier runs calls through a limiter and retries rate-limited failures.
type retrier struct {
	limiter    *Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

func newRetrier(cfg Config) retrier {
	cfg = cfg.withDefaults()
	return retrier{
		limiter:    NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
	}
}

func (r retrier) do(ctx context.Context, name string, call func() error) error {
	wait := r.backoff
	for attempt := 0; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		err := call()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) || attempt >= r.maxRetries {
			return err
		}
		logger.Warn("%s rate limited, retrying in %s (attempt %d/%d)", name, wait, attempt+1, r.maxRetries)
		r.limiter.Backoff(wait)
		wait = min(wait*2, r.maxBackoff)
	}
}

// EmbeddingService throttles an embedding provider.
type EmbeddingService struct {
	driven.EmbeddingService
	retrier retrier
}

// WrapEmbedding decorates svc with rate limiting and 429 retries.
func WrapEmbedding(svc driven.EmbeddingService, cfg Config) *EmbeddingService {
	return &EmbeddingService{EmbeddingService: svc, retrier: newRetrier(cfg)}
}

// Embed forwards to the wrapped service. Empty input bypasses the limiter.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var out [][]float32
	err := s.retrier.do(ctx, "embedding", func() error {
		var err error
		out, err = s.EmbeddingService.Embed(ctx, texts)
		return err
	})
	return out, err
}

// LLMService throttles a generation provider.
type LLMService struct {
	driven.LLMService
	retrier retrier
}

// WrapLLM decorates svc with rate limiting and 429 retries.
func WrapLLM(svc driven.LLMService, cfg Config) *LLMService {
	return &LLMService{LLMService: svc, retrier: newRetrier(cfg)}
}

// Generate forwards to the wrapped service.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out string
	err := s.retrier.do(ctx, "generation", func() error {
		var err error
		out, err = s.LLMService.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

// Stream retries only while starting. Once fragments flow, failures are
// the consumer's to handle.
func (s *LLMService) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (<-chan driven.Fragment, error) {
	var out <-chan driven.Fragment
	err := s.retrier.do(ctx, "generation stream", func() error {
		var err error
		out, err = s.LLMService.Stream(ctx, prompt, opts)
		return err
	})
	return out, err
}
