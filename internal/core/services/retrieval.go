package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService runs two-stage retrieval: vector search, then rerank.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	reranker *Reranker
}

// NewRetrievalService creates a retrieval service.
// reranker may be nil, in which case reranking is always bypassed.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	reranker *Reranker,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		reranker: reranker,
	}
}

// Retrieve embeds the question, searches the index and picks the contexts.
func (s *RetrievalService) Retrieve(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Question: %q", question)

	opts = withRetrievalDefaults(opts)
	logger.Debug("top_k=%d use_chunks=%d rerank=%t", opts.TopK, opts.UseChunks, opts.Rerank)

	candidates, err := s.Search(ctx, question, opts.TopK)
	if err != nil {
		return nil, err
	}

	result := &domain.RetrievalResult{Candidates: candidates}
	switch {
	case len(candidates) == 0:
		result.State = domain.RetrievalEmpty
		logger.Info("No candidates found")
		return result, nil

	case !opts.Rerank || s.reranker == nil:
		result.State = domain.RetrievalBypassed
		result.Contexts = unranked(candidates, opts.UseChunks)

	default:
		contexts, state, err := s.reranker.Rerank(ctx, question, candidates, opts.UseChunks)
		if err != nil {
			return nil, err
		}
		result.State = state
		result.Contexts = contexts
	}

	logger.Info("Retrieval %s: %d candidates, %d contexts", result.State, len(candidates), len(result.Contexts))
	return result, nil
}

// Search runs only the vector stage and returns up to k candidates.
func (s *RetrievalService) Search(ctx context.Context, question string, k int) ([]domain.Candidate, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, asUnavailable(domain.ErrEmbeddingUnavailable, fmt.Errorf("embed question: %w", err))
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingUnavailable, len(vectors))
	}

	candidates, err := s.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search returned %d candidates", len(candidates))
	return candidates, nil
}

func withRetrievalDefaults(opts domain.RetrievalOptions) domain.RetrievalOptions {
	defaults := domain.DefaultAppSettings().Retrieval
	if opts.TopK <= 0 {
		opts.TopK = defaults.TopK
	}
	if opts.UseChunks <= 0 {
		opts.UseChunks = defaults.UseChunks
	}
	return opts
}
