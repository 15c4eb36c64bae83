package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// EvalService measures retrieval and answer quality against labelled cases.
type EvalService interface {
	// EvaluateRetrieval scores the first k vector search hits per case.
	EvaluateRetrieval(ctx context.Context, cases []domain.EvalCase, k int) (*domain.RetrievalReport, error)

	// Judge answers each case and asks the LLM to grade the answer.
	Judge(ctx context.Context, cases []domain.EvalCase) ([]domain.JudgeVerdict, error)

	// RunScenarios uploads each scenario's document, asks its questions in one
	// session and grades every answer against its gold answer.
	RunScenarios(ctx context.Context, scenarios []domain.Scenario) (*domain.ScenarioReport, error)

	// CheckEmbeddings compares mean cosine similarity of related and unrelated
	// text pairs. Empty lists use built-in pairs.
	CheckEmbeddings(ctx context.Context, similar, dissimilar []domain.TextPair) (*domain.EmbeddingCheck, error)
}
