package driven

import "context"

// EmbeddingService maps text to fixed-size vectors. One instance embeds
// chunks at ingestion and questions at query time, so both land in the same
// vector space.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order. No texts means no
	// request. Provider failures wrap domain.ErrEmbeddingUnavailable.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is D, the length of every returned vector. The vector index
	// is created with the same value.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request the provider allows.
	Ping(ctx context.Context) error

	Close() error
}
