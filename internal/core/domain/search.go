package domain

// Candidate is a first-stage vector search hit.
type Candidate struct {
	Chunk

	// Score is the cosine similarity to the query (higher is more similar).
	Score float64
}

// ScoredContext is a candidate annotated with a rerank relevance score.
type ScoredContext struct {
	Candidate

	// RerankScore is the relevance in [0,1]. Nil when reranking did not run.
	RerankScore *float64
}

// RetrievalState is the terminal state of a single retrieval call.
type RetrievalState string

// Retrieval states.
const (
	// RetrievalEmpty means vector search found nothing. Not an error.
	RetrievalEmpty RetrievalState = "empty"

	// RetrievalReranked means every candidate received a valid rerank score.
	RetrievalReranked RetrievalState = "reranked"

	// RetrievalRerankFallback means the reranker's output could not be parsed,
	// so the first candidates in vector order were used unchanged.
	RetrievalRerankFallback RetrievalState = "rerank_fallback"

	// RetrievalBypassed means reranking is disabled by configuration.
	RetrievalBypassed RetrievalState = "bypassed"
)

// String returns the string representation.
func (s RetrievalState) String() string {
	return string(s)
}

// RetrievalOptions configures a retrieval call.
type RetrievalOptions struct {
	// TopK is the number of vector search candidates.
	TopK int

	// UseChunks is the number of contexts handed to the prompt.
	UseChunks int

	// Rerank enables the relevance-scoring stage.
	Rerank bool
}

// RetrievalResult is the outcome of the retrieval-rerank pipeline.
type RetrievalResult struct {
	// State tells how the contexts were chosen.
	State RetrievalState

	// Candidates are the raw vector search hits in similarity order.
	Candidates []Candidate

	// Contexts are the chunks that reach the prompt, most relevant first.
	Contexts []ScoredContext
}

// IsEmpty reports whether retrieval ended in the empty terminal state.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || r.State == RetrievalEmpty
}
