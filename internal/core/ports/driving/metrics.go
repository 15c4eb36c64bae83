package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MetricsService exposes request metrics to dashboards.
type MetricsService interface {
	// Summary aggregates the metrics log keeping at most limit recent records.
	Summary(ctx context.Context, limit int) (*domain.MetricsSummary, error)
}

// FeedbackService records ratings of answers.
type FeedbackService interface {
	Submit(ctx context.Context, fb domain.Feedback) error
}
