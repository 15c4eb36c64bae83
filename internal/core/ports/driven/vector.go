package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex stores chunk vectors with their payload and answers cosine k-NN queries.
// Constructors create or reset a named collection of a fixed dimension;
// callers must not rely on contents surviving a restart.
//
// Implementations must be safe for concurrent Upsert and Search. A Search
// racing an Upsert may miss new entries but never pairs a vector with
// another chunk's payload.
type VectorIndex interface {
	// Upsert inserts or replaces entries keyed by chunk id. Zero items is a no-op.
	// A vector of the wrong size fails with domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, items []domain.IndexedVector) error

	// Search returns at most k candidates by descending cosine similarity.
	// Ties are broken by insertion order. An empty index yields no candidates.
	Search(ctx context.Context, query []float32, k int) ([]domain.Candidate, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Dimensions returns the fixed vector size of the collection.
	Dimensions() int

	// Close releases resources.
	Close() error
}
