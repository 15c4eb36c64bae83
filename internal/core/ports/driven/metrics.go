package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MetricsSink appends request metrics records.
// Concurrent writers must never interleave partial records.
type MetricsSink interface {
	Write(ctx context.Context, rec domain.MetricsRecord) error
	Close() error
}

// MetricsReader reads back the metrics log for summaries.
type MetricsReader interface {
	// Records returns every stored record in append order.
	Records(ctx context.Context) ([]domain.MetricsRecord, error)
}

// FeedbackStore appends user ratings of answers.
type FeedbackStore interface {
	Save(ctx context.Context, fb domain.Feedback) error
	Close() error
}
