package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Without vectorFor every text maps to the same unit vector.
type mockEmbeddingService struct {
	vectorFor func(text string) []float32
	embedErr  error
	dims      int

	mu    sync.Mutex
	calls [][]string
}

func (m *mockEmbeddingService) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.vectorFor != nil {
			out[i] = m.vectorFor(t)
			continue
		}
		v := make([]float32, m.Dimensions())
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 3
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockLLMService implements driven.LLMService for testing.
// Generate replies are picked by prompt content: rerank prompts get
// rerankReply, judge prompts get judgeReply, everything else answer.
type mockLLMService struct {
	answer      string
	rerankReply string
	judgeReply  string
	generateErr error

	fragments []string
	streamErr error
	// midStreamFail injects an error fragment after failAfter text fragments.
	midStreamFail bool
	failAfter     int
	// hold blocks the stream after the first fragment until ctx is cancelled.
	hold bool

	mu      sync.Mutex
	prompts []string
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.record(prompt)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	switch {
	case strings.Contains(prompt, "EXCERPTS:"):
		return m.rerankReply, nil
	case strings.Contains(prompt, "REFERENCE ANSWER:"):
		return m.judgeReply, nil
	default:
		return m.answer, nil
	}
}

func (m *mockLLMService) Stream(ctx context.Context, prompt string, _ driven.GenerateOptions) (<-chan driven.Fragment, error) {
	m.record(prompt)
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	out := make(chan driven.Fragment)
	go func() {
		defer close(out)
		for i, f := range m.fragments {
			if m.midStreamFail && i == m.failAfter {
				select {
				case out <- driven.Fragment{Err: errors.New("connection reset")}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- driven.Fragment{Text: f}:
			case <-ctx.Done():
				return
			}
			if m.hold {
				<-ctx.Done()
				return
			}
		}
	}()
	return out, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *mockLLMService) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits      []domain.Candidate
	count     int
	searchErr error
	upsertErr error
	countErr  error

	mu       sync.Mutex
	upserted []domain.IndexedVector
}

func (m *mockVectorIndex) Upsert(_ context.Context, items []domain.IndexedVector) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, items...)
	m.count += len(items)
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]domain.Candidate, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *mockVectorIndex) Dimensions() int {
	return 3
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	loadErr error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockMetricsSink implements driven.MetricsSink and driven.MetricsReader for testing.
type mockMetricsSink struct {
	writeErr error

	mu      sync.Mutex
	records []domain.MetricsRecord
}

func (m *mockMetricsSink) Write(_ context.Context, rec domain.MetricsRecord) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockMetricsSink) Records(_ context.Context) ([]domain.MetricsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.MetricsRecord(nil), m.records...), nil
}

func (m *mockMetricsSink) Close() error {
	return nil
}

func (m *mockMetricsSink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockFeedbackStore implements driven.FeedbackStore for testing.
type mockFeedbackStore struct {
	saveErr error
	saved   []domain.Feedback
}

func (m *mockFeedbackStore) Save(_ context.Context, fb domain.Feedback) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, fb)
	return nil
}

func (m *mockFeedbackStore) Close() error {
	return nil
}

// mockExtractors implements driven.ExtractorRegistry for testing.
type mockExtractors struct {
	text string
	err  error
}

func (m *mockExtractors) Extract(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}

func (m *mockExtractors) Supports(_ string) bool {
	return true
}

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

// candidates builds n candidates with ids 0..n-1 and descending scores.
func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{
			Chunk: domain.Chunk{ID: int64(i), Text: "chunk text " + string(rune('a'+i)), Source: "doc.txt"},
			Score: 1 - float64(i)*0.1,
		}
	}
	return out
}
