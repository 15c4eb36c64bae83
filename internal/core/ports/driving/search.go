package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrievalService turns a question into ranked context chunks.
type RetrievalService interface {
	// Retrieve runs vector search and, when enabled, the rerank stage.
	// An empty index ends in domain.RetrievalEmpty rather than an error.
	Retrieve(ctx context.Context, question string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error)
}
