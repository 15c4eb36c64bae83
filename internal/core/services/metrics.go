package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure MetricsService implements the interface.
var _ driving.MetricsService = (*MetricsService)(nil)

// RecordInput describes one answered request.
type RecordInput struct {
	Endpoint          string
	SessionID         string
	Question          string
	Answer            string
	ContextLen        int
	State             domain.RetrievalState
	TotalLatency      time.Duration
	FirstTokenLatency *time.Duration
}

// MetricsRecorder estimates cost and latency and appends records to its sinks.
// Recording never fails the request: sink errors are logged and dropped.
type MetricsRecorder struct {
	sinks   []driven.MetricsSink
	pricing domain.Pricing
	now     func() time.Time
}

// NewMetricsRecorder creates a recorder writing to every non-nil sink.
func NewMetricsRecorder(pricing domain.Pricing, sinks ...driven.MetricsSink) *MetricsRecorder {
	kept := make([]driven.MetricsSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MetricsRecorder{sinks: kept, pricing: pricing, now: time.Now}
}

// EstimateTokens approximates a token count by whitespace word splitting.
// It is not a tokenizer and must not be used for billing.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// Record builds the record for in, appends it to every sink and returns it.
func (r *MetricsRecorder) Record(ctx context.Context, in RecordInput) domain.MetricsRecord {
	inputTokens := EstimateTokens(in.Question)
	outputTokens := EstimateTokens(in.Answer)

	total := in.TotalLatency.Seconds()
	var first *float64
	if in.FirstTokenLatency != nil {
		f := min(in.FirstTokenLatency.Seconds(), total)
		first = &f
	}

	rec := domain.MetricsRecord{
		Timestamp:            domain.UnixTime{Time: r.now()},
		Endpoint:             in.Endpoint,
		SessionID:            in.SessionID,
		Question:             in.Question,
		AnswerLen:            len([]rune(in.Answer)),
		ContextLen:           in.ContextLen,
		InputTokensEst:       inputTokens,
		OutputTokensEst:      outputTokens,
		CostEstimate:         r.pricing.Cost(inputTokens, outputTokens),
		TotalLatencySec:      total,
		FirstTokenLatencySec: first,
		RetrievalState:       in.State,
	}

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			logger.Warn("Metrics record dropped: %v", err)
		}
	}
	return rec
}

// Close closes every sink.
func (r *MetricsRecorder) Close() error {
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MetricsService summarises the metrics log for dashboards.
type MetricsService struct {
	reader driven.MetricsReader
}

// NewMetricsService creates a metrics service.
func NewMetricsService(reader driven.MetricsReader) *MetricsService {
	return &MetricsService{reader: reader}
}

// Summary aggregates every record and keeps at most limit recent ones.
func (s *MetricsService) Summary(ctx context.Context, limit int) (*domain.MetricsSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.reader.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	summary := domain.Summarise(records, limit)
	return &summary, nil
}
