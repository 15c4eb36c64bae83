// Package apptest builds a complete pipeline on deterministic fakes for
// tests of the driving adapters.
package apptest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Dimensions is the fake embedder's vector size.
const Dimensions = 64

// Embedder hashes lower-cased words into a normalised bag-of-words vector,
// so texts sharing words are similar.
type Embedder struct{}

var _ driven.EmbeddingService = Embedder{}

// Embed returns one vector per text.
func (Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (Embedder) Dimensions() int              { return Dimensions }
func (Embedder) ModelName() string            { return "bag-of-words" }
func (Embedder) Ping(_ context.Context) error { return nil }
func (Embedder) Close() error                 { return nil }

func bagOfWords(text string) []float32 {
	v := make([]float32, Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%Dimensions]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

var (
	rerankID     = regexp.MustCompile(`(?m)^ID: (\d+)$`)
	firstExcerpt = regexp.MustCompile(`Excerpt #1 \(source: [^)]*\):\n([^\n]*)`)
)

// LLM answers rerank prompts with descending scores, judge prompts with
// JudgeReply and answer prompts with Answer, or the first excerpt's first
// line when Answer is empty.
type LLM struct {
	Answer     string
	JudgeReply string
	// StreamErr fails Stream before any fragment.
	StreamErr error

	mu      sync.Mutex
	prompts []string
}

var _ driven.LLMService = (*LLM)(nil)

// Generate produces a complete reply for prompt.
func (l *LLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.record(prompt)
	switch {
	case strings.Contains(prompt, "EXCERPTS:"):
		ids := rerankID.FindAllStringSubmatch(prompt, -1)
		parts := make([]string, len(ids))
		for i, m := range ids {
			parts[i] = fmt.Sprintf(`{"id": %s, "score": %.2f}`, m[1], max(0, 1-0.1*float64(i)))
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case strings.Contains(prompt, "REFERENCE ANSWER:"):
		if l.JudgeReply != "" {
			return l.JudgeReply, nil
		}
		return `{"relevance": 1, "hallucination": 0, "correctness": 1}`, nil
	default:
		return l.answer(prompt), nil
	}
}

// Stream emits the answer word by word.
func (l *LLM) Stream(ctx context.Context, prompt string, _ driven.GenerateOptions) (<-chan driven.Fragment, error) {
	l.record(prompt)
	if l.StreamErr != nil {
		return nil, l.StreamErr
	}
	words := strings.SplitAfter(l.answer(prompt), " ")
	out := make(chan driven.Fragment)
	go func() {
		defer close(out)
		for _, w := range words {
			select {
			case out <- driven.Fragment{Text: w}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (l *LLM) answer(prompt string) string {
	if l.Answer != "" {
		return l.Answer
	}
	if m := firstExcerpt.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return "I don't know."
}

func (l *LLM) ModelName() string            { return "scripted" }
func (l *LLM) Ping(_ context.Context) error { return nil }
func (l *LLM) Close() error                 { return nil }

func (l *LLM) record(prompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
}

// Prompts returns every prompt seen so far.
func (l *LLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}

// Env is a pipeline on fakes with its logs under a temporary directory.
type Env struct {
	App *app.App
	LLM *LLM
	Dir string
}

// New builds the pipeline. Metrics and feedback go to JSONL files in Dir.
func New(tb testing.TB) *Env {
	tb.Helper()
	dir := tb.TempDir()

	settings := domain.DefaultAppSettings()
	settings.Embedding.Dimensions = Dimensions
	settings.Metrics.LogPath = filepath.Join(dir, "requests.jsonl")
	settings.FeedbackLogPath = filepath.Join(dir, "feedback.jsonl")
	settings.Server.UploadDir = filepath.Join(dir, "uploads")

	metricsLog, err := jsonl.OpenMetricsLog(settings.Metrics.LogPath)
	if err != nil {
		tb.Fatalf("open metrics log: %v", err)
	}
	feedbackLog, err := jsonl.OpenFeedbackLog(settings.FeedbackLogPath)
	if err != nil {
		tb.Fatalf("open feedback log: %v", err)
	}
	tb.Cleanup(func() {
		_ = metricsLog.Close()
		_ = feedbackLog.Close()
	})

	llm := &LLM{}
	a := app.Assemble(settings, app.Deps{
		Embedder:      Embedder{},
		LLM:           llm,
		Index:         memory.NewVectorIndex(Dimensions),
		MetricsSinks:  []driven.MetricsSink{metricsLog},
		MetricsReader: metricsLog,
		FeedbackStore: feedbackLog,
	})
	return &Env{App: a, LLM: llm, Dir: dir}
}

// Ingest indexes text under source or fails the test.
func (e *Env) Ingest(tb testing.TB, source, text string) {
	tb.Helper()
	if _, err := e.App.Ingest.IngestText(context.Background(), source, text); err != nil {
		tb.Fatalf("ingest %s: %v", source, err)
	}
}
