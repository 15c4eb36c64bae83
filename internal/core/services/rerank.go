package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultSnippetChars bounds each candidate's text in the rerank prompt.
const DefaultSnippetChars = 400

// DefaultRerankPrompt expects the question and the numbered candidates.
const DefaultRerankPrompt = `Rate how relevant each text excerpt is to the question.

QUESTION:
%s

EXCERPTS:
%s
Return a JSON array where every element is:
{"id": <ID>, "score": <number between 0 and 1>}

Return only the JSON array, nothing else.`

// errRerankParse marks reranker output that cannot be used.
// It is logged and absorbed, never returned to callers.
var errRerankParse = errors.New("rerank output unusable")

// Reranker scores candidates with an LLM acting as a relevance judge.
type Reranker struct {
	llm          driven.LLMService
	prompts      driven.PromptStore
	snippetChars int
}

// NewReranker creates a reranker. prompts may be nil; snippetChars <= 0 uses the default.
func NewReranker(llm driven.LLMService, prompts driven.PromptStore, snippetChars int) *Reranker {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}
	return &Reranker{llm: llm, prompts: prompts, snippetChars: snippetChars}
}

// Rerank orders candidates by LLM relevance score and keeps the best useChunks.
//
// Candidates are submitted with 1-based ids in their given order. When the
// reply does not carry a valid score for every id, the first useChunks
// candidates are returned unchanged with state RetrievalRerankFallback.
// A failing LLM call is returned as an error.
func (r *Reranker) Rerank(
	ctx context.Context, question string, candidates []domain.Candidate, useChunks int,
) ([]domain.ScoredContext, domain.RetrievalState, error) {
	if len(candidates) == 0 {
		return nil, domain.RetrievalEmpty, nil
	}

	prompt := fmt.Sprintf(r.template(), question, r.renderCandidates(candidates))
	raw, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return nil, "", asUnavailable(domain.ErrGenerationUnavailable, fmt.Errorf("rerank: %w", err))
	}

	scores, err := parseRerankScores(raw, len(candidates))
	if err != nil {
		logger.Warn("Rerank fallback to vector order: %v", err)
		logger.Debug("Unusable rerank reply: %q", raw)
		return unranked(candidates, useChunks), domain.RetrievalRerankFallback, nil
	}

	scored := make([]domain.ScoredContext, len(candidates))
	for i, c := range candidates {
		s := scores[i+1]
		scored[i] = domain.ScoredContext{Candidate: c, RerankScore: &s}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].RerankScore > *scored[j].RerankScore
	})

	if len(scored) > useChunks {
		scored = scored[:useChunks]
	}
	return scored, domain.RetrievalReranked, nil
}

func (r *Reranker) template() string {
	if r.prompts == nil {
		return DefaultRerankPrompt
	}
	text, err := r.prompts.Load(driven.PromptRerank)
	if err != nil || strings.Count(text, "%s") != 2 {
		return DefaultRerankPrompt
	}
	return text
}

func (r *Reranker) renderCandidates(candidates []domain.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "ID: %d\nText: %s\n\n", i+1, truncateRunes(c.Text, r.snippetChars))
	}
	return b.String()
}

// truncateRunes cuts s to at most n characters and marks the cut with "...".
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

type rerankScore struct {
	ID    *int     `json:"id"`
	Score *float64 `json:"score"`
}

// parseRerankScores requires exactly one score in [0,1] for every id in 1..n.
func parseRerankScores(raw string, n int) (map[int]float64, error) {
	body := extractJSON(raw, '[', ']')
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON array", errRerankParse)
	}

	var items []rerankScore
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errRerankParse, err)
	}

	scores := make(map[int]float64, n)
	for _, it := range items {
		if it.ID == nil || it.Score == nil {
			return nil, fmt.Errorf("%w: item without id or score", errRerankParse)
		}
		id, score := *it.ID, *it.Score
		if id < 1 || id > n {
			return nil, fmt.Errorf("%w: unknown id %d", errRerankParse, id)
		}
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("%w: score %v for id %d out of range", errRerankParse, score, id)
		}
		if _, dup := scores[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", errRerankParse, id)
		}
		scores[id] = score
	}
	if len(scores) != n {
		return nil, fmt.Errorf("%w: scored %d of %d candidates", errRerankParse, len(scores), n)
	}
	return scores, nil
}

// extractJSON returns the outermost openCh..closeCh span of raw, tolerating
// markdown code fences and chatter around the payload.
func extractJSON(raw string, openCh, closeCh byte) string {
	start := strings.IndexByte(raw, openCh)
	end := strings.LastIndexByte(raw, closeCh)
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// unranked returns the first n candidates without rerank scores.
func unranked(candidates []domain.Candidate, n int) []domain.ScoredContext {
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]domain.ScoredContext, n)
	for i := 0; i < n; i++ {
		out[i] = domain.ScoredContext{Candidate: candidates[i]}
	}
	return out
}

// asUnavailable ensures err matches sentinel for callers using errors.Is.
func asUnavailable(sentinel, err error) error {
	if err == nil || errors.Is(err, sentinel) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrRateLimited) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
