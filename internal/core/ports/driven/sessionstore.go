package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SessionStore keeps the rolling turn history per conversation.
// Appends for the same session id are serialised; turns passed in one
// Append call stay adjacent in history.
type SessionStore interface {
	// History returns a copy of the session's turns, oldest first.
	// Unknown ids yield an empty history.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Append adds turns to the end of the session's history atomically.
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
}
