package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Ensure EvalService implements the interface.
var _ driving.EvalService = (*EvalService)(nil)

// DefaultEvalK is the cut-off for precision and recall.
const DefaultEvalK = 5

// evalSearchDepth is how many hits reciprocal rank looks through.
const evalSearchDepth = 10

// DefaultJudgePrompt expects the question, the reference answer and the answer under test.
const DefaultJudgePrompt = `You are an evaluator. Grade an assistant's answer to a question against the reference answer.

Give each value between 0 and 1:
- "relevance": how relevant the answer is to the question (0 = not at all, 1 = fully)
- "hallucination": how much the answer claims that the reference does not support (0 = nothing, 1 = a lot)
- "correctness": how well the answer matches the reference (0 = wrong, 1 = exact)

Return only JSON, no other text. Example:
{"relevance": 0.9, "hallucination": 0.1, "correctness": 0.85}

QUESTION:
%s

REFERENCE ANSWER:
%s

ASSISTANT ANSWER:
%s`

const noReference = "(no reference given; judge against general correctness)"

// searcher runs the vector stage only.
type searcher interface {
	Search(ctx context.Context, question string, k int) ([]domain.Candidate, error)
}

// EvalService scores retrieval and answers against labelled cases.
type EvalService struct {
	search   searcher
	chat     driving.ChatService
	llm      driven.LLMService
	prompts  driven.PromptStore
	ingest   driving.IngestService
	embedder driven.EmbeddingService
	now      func() time.Time
}

// NewEvalService creates an evaluation service. chat and llm are only
// needed by Judge; prompts may be nil.
func NewEvalService(
	search searcher,
	chat driving.ChatService,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *EvalService {
	return &EvalService{search: search, chat: chat, llm: llm, prompts: prompts, now: time.Now}
}

// SetIngest enables document uploads for RunScenarios.
func (s *EvalService) SetIngest(ingest driving.IngestService) {
	s.ingest = ingest
}

// SetEmbedder enables CheckEmbeddings.
func (s *EvalService) SetEmbedder(embedder driven.EmbeddingService) {
	s.embedder = embedder
}

// EvaluateRetrieval computes precision@k, recall@k and reciprocal rank per case.
func (s *EvalService) EvaluateRetrieval(
	ctx context.Context, cases []domain.EvalCase, k int,
) (*domain.RetrievalReport, error) {
	if k <= 0 {
		k = DefaultEvalK
	}
	logger.Section("Retrieval evaluation")

	report := &domain.RetrievalReport{K: k, Cases: make([]domain.RetrievalScores, 0, len(cases))}
	for i, c := range cases {
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("%w: case %d has no query", domain.ErrInvalidInput, i+1)
		}
		hits, err := s.search.Search(ctx, c.Query, max(k, evalSearchDepth))
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		scores := ScoreRetrieval(c, hits, k)
		logger.Debug("Case %d: P@%d=%.3f R@%d=%.3f RR=%.3f",
			i+1, k, scores.PrecisionAtK, k, scores.RecallAtK, scores.ReciprocalRank)

		report.Cases = append(report.Cases, scores)
		report.MeanPrecision += scores.PrecisionAtK
		report.MeanRecall += scores.RecallAtK
		report.MRR += scores.ReciprocalRank
	}

	if n := float64(len(report.Cases)); n > 0 {
		report.MeanPrecision /= n
		report.MeanRecall /= n
		report.MRR /= n
	}
	return report, nil
}

// ScoreRetrieval grades one ranked hit list against a case.
// Precision divides by the hits actually returned within k. Recall counts
// distinct labels matched within k. Reciprocal rank looks at every hit.
func ScoreRetrieval(c domain.EvalCase, hits []domain.Candidate, k int) domain.RetrievalScores {
	scores := domain.RetrievalScores{Query: c.Query}

	top := hits[:min(k, len(hits))]
	if len(top) > 0 {
		relevant := 0
		for _, h := range top {
			if c.IsRelevant(h.Chunk) {
				relevant++
			}
		}
		scores.PrecisionAtK = float64(relevant) / float64(len(top))
	}

	if total := c.RelevantCount(); total > 0 {
		matched := make(map[string]struct{})
		for _, h := range top {
			for _, id := range c.RelevantIDs {
				if id == h.ID {
					matched[fmt.Sprintf("id:%d", id)] = struct{}{}
				}
			}
			for _, src := range c.RelevantSources {
				if src == h.Source {
					matched["src:"+src] = struct{}{}
				}
			}
		}
		scores.RecallAtK = float64(len(matched)) / float64(total)
	}

	for i, h := range hits {
		if c.IsRelevant(h.Chunk) {
			scores.ReciprocalRank = 1 / float64(i+1)
			break
		}
	}
	return scores
}

// Judge answers every case in a fresh session and asks the LLM to grade it.
// Unparseable judge replies yield the fallback verdict instead of an error.
func (s *EvalService) Judge(ctx context.Context, cases []domain.EvalCase) ([]domain.JudgeVerdict, error) {
	if s.chat == nil || s.llm == nil {
		return nil, fmt.Errorf("%w: judging needs a chat service and an LLM", domain.ErrInvalidInput)
	}
	logger.Section("Answer evaluation")

	verdicts := make([]domain.JudgeVerdict, 0, len(cases))
	for i, c := range cases {
		resp, err := s.chat.Ask(ctx, driving.ChatRequest{Question: c.Query, Endpoint: domain.EndpointEval})
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}

		verdict, err := s.judge(ctx, c.Query, c.Reference, resp.Answer)
		if err != nil {
			return nil, fmt.Errorf("judge case %d: %w", i+1, err)
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, nil
}

// judge grades one answer. An unusable reply yields the fallback verdict.
func (s *EvalService) judge(ctx context.Context, question, reference, answer string) (domain.JudgeVerdict, error) {
	if strings.TrimSpace(reference) == "" {
		reference = noReference
	}
	prompt := fmt.Sprintf(s.judgeTemplate(), question, reference, answer)
	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return domain.JudgeVerdict{}, asUnavailable(domain.ErrGenerationUnavailable, err)
	}

	verdict, err := parseVerdict(question, raw)
	if err != nil {
		logger.Warn("Judge reply for %q unusable, scoring as failed: %v", truncateRunes(question, 60), err)
		return domain.FallbackVerdict(question), nil
	}
	return verdict, nil
}

// RunScenarios uploads each scenario's document and asks its questions in
// one session, timing every answer and grading it against the gold answer.
// A scenario whose document cannot be indexed is skipped. A failed question
// counts towards latency but is not judged.
func (s *EvalService) RunScenarios(ctx context.Context, scenarios []domain.Scenario) (*domain.ScenarioReport, error) {
	if s.chat == nil || s.llm == nil {
		return nil, fmt.Errorf("%w: scenarios need a chat service and an LLM", domain.ErrInvalidInput)
	}
	logger.Section("Scenario evaluation")

	report := &domain.ScenarioReport{Answers: []domain.ScenarioAnswer{}}
	var latency, correctness float64
	judged := 0

	for i, sc := range scenarios {
		id := sc.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		if len(sc.Questions) == 0 {
			return nil, fmt.Errorf("%w: scenario %s has no questions", domain.ErrInvalidInput, id)
		}

		if sc.Upload {
			if err := s.upload(ctx, sc.DocPath); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("Scenario %s skipped: %v", id, err)
				report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", id, err))
				continue
			}
		}

		sessionID := ""
		for _, q := range sc.Questions {
			ans := domain.ScenarioAnswer{
				ScenarioID:    id,
				Question:      q.Question,
				MaxLatencySec: q.Limit().Seconds(),
			}

			start := s.now()
			resp, err := s.chat.Ask(ctx, driving.ChatRequest{
				Question:  q.Question,
				SessionID: sessionID,
				Endpoint:  domain.EndpointEval,
			})
			elapsed := s.now().Sub(start)
			ans.LatencySec = elapsed.Seconds()
			ans.WithinLimit = elapsed <= q.Limit()
			latency += ans.LatencySec
			if !ans.WithinLimit {
				report.SlowAnswers++
				logger.Warn("Scenario %s: %.2fs exceeds the %.2fs limit", id, ans.LatencySec, ans.MaxLatencySec)
			}

			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("Scenario %s: no answer to %q: %v", id, truncateRunes(q.Question, 60), err)
				ans.Error = err.Error()
				report.Answers = append(report.Answers, ans)
				continue
			}
			sessionID = resp.SessionID
			ans.Answer = resp.Answer

			verdict, err := s.judge(ctx, q.Question, q.GoldAnswer, resp.Answer)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", id, err)
			}
			ans.Verdict = &verdict
			correctness += verdict.Correctness
			judged++
			logger.Debug("Scenario %s: latency=%.2fs correctness=%.2f", id, ans.LatencySec, verdict.Correctness)

			report.Answers = append(report.Answers, ans)
		}
	}

	if n := len(report.Answers); n > 0 {
		report.AvgLatencySec = latency / float64(n)
	}
	if judged > 0 {
		report.AvgCorrectness = correctness / float64(judged)
	}
	return report, nil
}

func (s *EvalService) upload(ctx context.Context, path string) error {
	if s.ingest == nil {
		return fmt.Errorf("%w: uploads need an ingest service", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no document path", domain.ErrInvalidInput)
	}
	res, err := s.ingest.IngestFile(ctx, path, "")
	if err != nil {
		return err
	}
	logger.Info("Uploaded %s: %d chunks", res.Source, res.ChunksIndexed)
	return nil
}

// CheckEmbeddings embeds every pair and compares the mean cosine similarity
// of related pairs with that of unrelated ones. Empty lists use the defaults.
func (s *EvalService) CheckEmbeddings(
	ctx context.Context, similar, dissimilar []domain.TextPair,
) (*domain.EmbeddingCheck, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}
	if len(similar) == 0 {
		similar = domain.DefaultSimilarPairs()
	}
	if len(dissimilar) == 0 {
		dissimilar = domain.DefaultDissimilarPairs()
	}
	logger.Section("Embedding check")

	pairs := append(append([]domain.TextPair{}, similar...), dissimilar...)
	texts := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		texts = append(texts, p.A, p.B)
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(vectors), len(texts))
	}

	check := &domain.EmbeddingCheck{
		Model:      s.embedder.ModelName(),
		Similar:    make([]float64, 0, len(similar)),
		Dissimilar: make([]float64, 0, len(dissimilar)),
	}
	for i := range pairs {
		sim := cosineSimilarity(vectors[2*i], vectors[2*i+1])
		if i < len(similar) {
			check.Similar = append(check.Similar, sim)
			check.SimilarMean += sim
		} else {
			check.Dissimilar = append(check.Dissimilar, sim)
			check.DissimilarMean += sim
		}
	}
	check.SimilarMean /= float64(len(similar))
	check.DissimilarMean /= float64(len(dissimilar))
	logger.Debug("Embedding check: similar=%.3f dissimilar=%.3f", check.SimilarMean, check.DissimilarMean)
	return check, nil
}

// cosineSimilarity is 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SweepChunking reports how each configuration splits the corpus.
func SweepChunking(texts []string, configs []domain.ChunkConfig) ([]domain.SweepResult, error) {
	if len(configs) == 0 {
		configs = domain.DefaultSweepConfigs()
	}
	results := make([]domain.SweepResult, 0, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", err, cfg.ChunkSize, cfg.Overlap)
		}
		p := chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.Overlap))

		res := domain.SweepResult{ChunkConfig: cfg}
		words := 0
		for _, text := range texts {
			for w := range p.Windows(text) {
				res.Chunks++
				words += len(strings.Fields(w))
			}
		}
		if res.Chunks > 0 {
			res.AvgWords = float64(words) / float64(res.Chunks)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *EvalService) judgeTemplate() string {
	if s.prompts == nil {
		return DefaultJudgePrompt
	}
	text, err := s.prompts.Load(driven.PromptJudge)
	if err != nil || strings.Count(text, "%s") != 3 {
		return DefaultJudgePrompt
	}
	return text
}

type judgeReply struct {
	Relevance     *float64 `json:"relevance"`
	Hallucination *float64 `json:"hallucination"`
	Correctness   *float64 `json:"correctness"`
}

// parseVerdict requires all three scores, each in [0,1].
func parseVerdict(query, raw string) (domain.JudgeVerdict, error) {
	body := extractJSON(raw, '{', '}')
	if body == "" {
		return domain.JudgeVerdict{}, fmt.Errorf("no JSON object in %q", raw)
	}
	var reply judgeReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return domain.JudgeVerdict{}, err
	}
	for name, v := range map[string]*float64{
		"relevance":     reply.Relevance,
		"hallucination": reply.Hallucination,
		"correctness":   reply.Correctness,
	} {
		if v == nil || *v < 0 || *v > 1 {
			return domain.JudgeVerdict{}, fmt.Errorf("%s missing or outside [0,1]", name)
		}
	}
	return domain.JudgeVerdict{
		Query:         query,
		Relevance:     *reply.Relevance,
		Hallucination: *reply.Hallucination,
		Correctness:   *reply.Correctness,
		Parsed:        true,
	}, nil
}
