package httpapi

import "github.com/custodia-labs/docqa/internal/core/domain"

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`

	// Optional per-request retrieval overrides.
	TopK      *int  `json:"top_k,omitempty"`
	UseChunks *int  `json:"use_chunks,omitempty"`
	UseRerank *bool `json:"use_rerank,omitempty"`
}

// retrieval merges the overrides onto defaults. Nil means no override was sent.
func (r chatRequest) retrieval(defaults domain.RetrievalOptions) *domain.RetrievalOptions {
	if r.TopK == nil && r.UseChunks == nil && r.UseRerank == nil {
		return nil
	}
	opts := defaults
	if r.TopK != nil {
		opts.TopK = *r.TopK
	}
	if r.UseChunks != nil {
		opts.UseChunks = *r.UseChunks
	}
	if r.UseRerank != nil {
		opts.Rerank = *r.UseRerank
	}
	return &opts
}

type contextItem struct {
	ID          int64    `json:"id"`
	Text        string   `json:"text"`
	Source      string   `json:"source"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score"`
}

type chatResponse struct {
	SessionID  string               `json:"session_id"`
	Answer     string               `json:"answer"`
	State      string               `json:"retrieval_state"`
	Context    []contextItem        `json:"context"`
	Monitoring domain.MetricsRecord `json:"monitoring"`
}

type uploadResponse struct {
	Status        string `json:"status"`
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status       string `json:"status"`
	HasDocuments bool   `json:"has_documents"`
}

func toContextItems(contexts []domain.ScoredContext) []contextItem {
	items := make([]contextItem, len(contexts))
	for i, c := range contexts {
		items[i] = contextItem{
			ID:          c.ID,
			Text:        c.Text,
			Source:      c.Source,
			Score:       c.Score,
			RerankScore: c.RerankScore,
		}
	}
	return items
}
