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

// Ensure FeedbackService implements the interface.
var _ driving.FeedbackService = (*FeedbackService)(nil)

// FeedbackService validates and stores answer ratings.
type FeedbackService struct {
	store driven.FeedbackStore
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(store driven.FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store}
}

// Submit stores fb after validation.
func (s *FeedbackService) Submit(ctx context.Context, fb domain.Feedback) error {
	fb.Question = strings.TrimSpace(fb.Question)
	fb.Comment = strings.TrimSpace(fb.Comment)
	if err := fb.Validate(); err != nil {
		return fmt.Errorf("%w: feedback needs session_id, question and a rating from 1 to 5", err)
	}
	if err := s.store.Save(ctx, fb); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	logger.Debug("Feedback for session %s: %d", fb.SessionID, fb.Rating)
	return nil
}
