package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ChatRequest is one question within an optional session.
type ChatRequest struct {
	// Question must be non-empty after trimming.
	Question string

	// SessionID continues a conversation. Empty mints a new id.
	SessionID string

	// Retrieval overrides the configured retrieval options when non-nil.
	Retrieval *domain.RetrievalOptions

	// Endpoint names the caller in metrics records. Defaults per method.
	Endpoint string
}

// ChatResponse is a fully generated answer.
type ChatResponse struct {
	SessionID string
	Answer    string
	State     domain.RetrievalState
	Contexts  []domain.ScoredContext
	Metrics   domain.MetricsRecord
}

// AnswerStream is an answer being generated incrementally.
type AnswerStream interface {
	// SessionID is known before the first fragment.
	SessionID() string

	// Contexts are the chunks the answer is grounded on.
	Contexts() []domain.ScoredContext

	// Fragments yields answer text in generation order. It is closed when
	// generation completes, fails, or the request context is cancelled.
	Fragments() <-chan string

	// Result blocks until Fragments is closed. On full completion it returns
	// the committed response; otherwise it returns the failure, and nothing
	// was written to session history or the metrics log.
	Result() (*ChatResponse, error)
}

// ChatService answers questions from indexed documents.
type ChatService interface {
	// Ask answers in one piece. Asking before any upload fails with domain.ErrNoDocuments.
	Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// AskStream answers incrementally. Cancelling ctx stops generation.
	AskStream(ctx context.Context, req ChatRequest) (AnswerStream, error)

	// History returns a session's turns.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
}
