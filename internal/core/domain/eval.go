package domain

// EvalCase is one labelled retrieval query.
// Relevance is expressed by chunk id, by source name, or both.
type EvalCase struct {
	Query           string   `yaml:"query" json:"query"`
	RelevantIDs     []int64  `yaml:"relevant_ids" json:"relevant_ids"`
	RelevantSources []string `yaml:"relevant_sources" json:"relevant_sources"`

	// Reference is an optional expected answer used by the judge.
	Reference string `yaml:"reference" json:"reference"`
}

// IsRelevant reports whether a candidate matches the case's labels.
func (c EvalCase) IsRelevant(chunk Chunk) bool {
	for _, id := range c.RelevantIDs {
		if id == chunk.ID {
			return true
		}
	}
	for _, src := range c.RelevantSources {
		if src == chunk.Source {
			return true
		}
	}
	return false
}

// RelevantCount is the number of distinct labels, used as the recall denominator.
func (c EvalCase) RelevantCount() int {
	return len(c.RelevantIDs) + len(c.RelevantSources)
}

// RetrievalScores holds ranking quality for one query.
type RetrievalScores struct {
	Query          string  `json:"query"`
	PrecisionAtK   float64 `json:"precision_at_k"`
	RecallAtK      float64 `json:"recall_at_k"`
	ReciprocalRank float64 `json:"reciprocal_rank"`
}

// RetrievalReport aggregates RetrievalScores over a case set.
type RetrievalReport struct {
	K             int               `json:"k"`
	Cases         []RetrievalScores `json:"cases"`
	MeanPrecision float64           `json:"mean_precision_at_k"`
	MeanRecall    float64           `json:"mean_recall_at_k"`
	MRR           float64           `json:"mrr"`
}

// JudgeVerdict is an LLM-as-judge assessment of one answer, each value in [0,1].
type JudgeVerdict struct {
	Query         string  `json:"query"`
	Relevance     float64 `json:"relevance"`
	Hallucination float64 `json:"hallucination"`
	Correctness   float64 `json:"correctness"`

	// Parsed is false when the judge's reply was unusable and the
	// pessimistic fallback verdict was substituted.
	Parsed bool `json:"parsed"`
}

// FallbackVerdict is substituted when a judge reply cannot be parsed.
func FallbackVerdict(query string) JudgeVerdict {
	return JudgeVerdict{Query: query, Relevance: 0, Hallucination: 1, Correctness: 0}
}

// ChunkConfig is one (chunk_size, overlap) pair.
type ChunkConfig struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

// Validate checks the configuration guarantees forward progress.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 || c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return ErrInvalidInput
	}
	return nil
}

// DefaultSweepConfigs returns the chunk configurations compared by a sweep.
func DefaultSweepConfigs() []ChunkConfig {
	return []ChunkConfig{
		{ChunkSize: 200, Overlap: 50},
		{ChunkSize: 500, Overlap: 100},
		{ChunkSize: 800, Overlap: 200},
	}
}

// SweepResult is the chunk count one configuration produces for a corpus.
type SweepResult struct {
	ChunkConfig
	Chunks int `json:"chunks"`

	// AvgWords is the mean chunk length in words.
	AvgWords float64 `json:"avg_words"`
}
