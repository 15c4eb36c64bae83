package jsonl

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultFeedbackPath is where ratings are logged unless configured.
const DefaultFeedbackPath = "logs/feedback.jsonl"

var _ driven.FeedbackStore = (*FeedbackLog)(nil)

// FeedbackLog is the append-only feedback log.
type FeedbackLog struct {
	w *appender
}

// OpenFeedbackLog opens (creating if needed) the log at path.
func OpenFeedbackLog(path string) (*FeedbackLog, error) {
	if path == "" {
		path = DefaultFeedbackPath
	}
	w, err := openAppender(path)
	if err != nil {
		return nil, err
	}
	return &FeedbackLog{w: w}, nil
}

// Save appends one rating.
func (l *FeedbackLog) Save(_ context.Context, fb domain.Feedback) error {
	return l.w.append(fb)
}

// Close closes the log file.
func (l *FeedbackLog) Close() error {
	return l.w.close()
}
