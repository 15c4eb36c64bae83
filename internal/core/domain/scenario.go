package domain

import "time"

// DefaultMaxLatency is the per-question limit when a scenario gives none.
const DefaultMaxLatency = 10 * time.Second

// Scenario uploads one document and then holds a conversation about it.
// All questions of a scenario share one session.
type Scenario struct {
	ID        string
	DocPath   string
	Upload    bool
	Questions []ScenarioQuestion
}

// ScenarioQuestion is one turn of a scenario with its expected answer.
type ScenarioQuestion struct {
	Question   string
	GoldAnswer string

	// MaxLatency of zero means DefaultMaxLatency.
	MaxLatency time.Duration
}

// Limit returns the effective latency limit.
func (q ScenarioQuestion) Limit() time.Duration {
	if q.MaxLatency <= 0 {
		return DefaultMaxLatency
	}
	return q.MaxLatency
}

// ScenarioAnswer is the outcome of one scenario question.
type ScenarioAnswer struct {
	ScenarioID    string  `json:"scenario_id"`
	Question      string  `json:"question"`
	Answer        string  `json:"answer"`
	LatencySec    float64 `json:"latency_sec"`
	MaxLatencySec float64 `json:"max_latency_sec"`
	WithinLimit   bool    `json:"within_limit"`

	// Verdict is nil when the question failed before it could be judged.
	Verdict *JudgeVerdict `json:"verdict,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ScenarioReport aggregates every answered scenario question.
// AvgCorrectness covers judged answers only; AvgLatencySec covers every call.
type ScenarioReport struct {
	Answers        []ScenarioAnswer `json:"answers"`
	Skipped        []string         `json:"skipped,omitempty"`
	AvgLatencySec  float64          `json:"avg_latency_sec"`
	AvgCorrectness float64          `json:"avg_correctness"`
	SlowAnswers    int              `json:"slow_answers"`
}

// TextPair is two texts whose embeddings are compared.
type TextPair struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
}

// EmbeddingCheck compares cosine similarity of related and unrelated pairs.
// A usable model scores SimilarMean well above DissimilarMean.
type EmbeddingCheck struct {
	Model          string    `json:"model"`
	Similar        []float64 `json:"similar"`
	Dissimilar     []float64 `json:"dissimilar"`
	SimilarMean    float64   `json:"similar_mean"`
	DissimilarMean float64   `json:"dissimilar_mean"`
}

// Margin is SimilarMean minus DissimilarMean.
func (c EmbeddingCheck) Margin() float64 {
	return c.SimilarMean - c.DissimilarMean
}

// DefaultSimilarPairs are paraphrases an embedding model should place close together.
func DefaultSimilarPairs() []TextPair {
	return []TextPair{
		{A: "RAG systems look up information in documents.", B: "A RAG pipeline answers from external documents."},
		{A: "An embedding turns text into a vector.", B: "Text is converted to vectors by an embedding model."},
	}
}

// DefaultDissimilarPairs are unrelated sentences an embedding model should keep apart.
func DefaultDissimilarPairs() []TextPair {
	return []TextPair{
		{A: "RAG systems look up information in documents.", B: "Cats like to sleep in the sun."},
		{A: "An embedding turns text into a vector.", B: "It is raining today."},
	}
}
