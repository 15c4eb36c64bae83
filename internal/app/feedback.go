package app

import (
	"context"
	"errors"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// fanOutFeedback saves to a primary store and best-effort mirrors.
type fanOutFeedback struct {
	primary driven.FeedbackStore
	mirrors []driven.FeedbackStore
}

// FanOutFeedback returns a store that saves to primary and then to every
// mirror. Only a primary failure is returned.
func FanOutFeedback(primary driven.FeedbackStore, mirrors ...driven.FeedbackStore) driven.FeedbackStore {
	return &fanOutFeedback{primary: primary, mirrors: mirrors}
}

func (f *fanOutFeedback) Save(ctx context.Context, fb domain.Feedback) error {
	if err := f.primary.Save(ctx, fb); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Save(ctx, fb); err != nil {
			logger.Warn("Feedback mirror failed: %v", err)
		}
	}
	return nil
}

// Close closes the mirrors and the primary. The caller still owns any
// underlying database handle.
func (f *fanOutFeedback) Close() error {
	errs := make([]error, 0, len(f.mirrors)+1)
	for _, m := range f.mirrors {
		errs = append(errs, m.Close())
	}
	errs = append(errs, f.primary.Close())
	return errors.Join(errs...)
}
