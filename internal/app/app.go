package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// App holds the driving services of one running pipeline.
type App struct {
	Settings  domain.AppSettings
	Ingest    driving.IngestService
	Retrieval *services.RetrievalService
	Chat      driving.ChatService
	Metrics   driving.MetricsService
	Feedback  driving.FeedbackService
	Eval      driving.EvalService

	// Prompts is set when prompt files back the templates; nil otherwise.
	Prompts *file.PromptStore

	closers []func() error
}

// Options tune New.
type Options struct {
	// ConfigDir holds config.toml and the prompts directory.
	ConfigDir string

	// SkipPing skips provider connectivity checks.
	SkipPing bool
}

// Deps are the adapters Assemble wires together.
type Deps struct {
	Embedder   driven.EmbeddingService
	LLM        driven.LLMService
	Index      driven.VectorIndex
	Sessions   driven.SessionStore
	Extractors driven.ExtractorRegistry
	// Prompts may be nil to use built-in templates.
	Prompts driven.PromptStore

	MetricsSinks  []driven.MetricsSink
	MetricsReader driven.MetricsReader
	FeedbackStore driven.FeedbackStore
}

// New builds providers, storage and services from settings.
func New(ctx context.Context, settings domain.AppSettings, opts Options) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	aiRes, err := ai.Init(ctx, settings, ai.Options{SkipPing: opts.SkipPing})
	if err != nil {
		return nil, err
	}
	closers := []func() error{func() error { aiRes.Close(); return nil }}
	fail := func(err error) (*App, error) {
		closeAll(closers)
		return nil, err
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir, services.DefaultPrompts())
	if err != nil {
		return fail(fmt.Errorf("open prompt store: %w", err))
	}

	metricsLog, err := jsonl.OpenMetricsLog(settings.Metrics.LogPath)
	if err != nil {
		return fail(fmt.Errorf("open metrics log: %w", err))
	}
	closers = append(closers, metricsLog.Close)

	feedbackLog, err := jsonl.OpenFeedbackLog(settings.FeedbackLogPath)
	if err != nil {
		return fail(fmt.Errorf("open feedback log: %w", err))
	}
	closers = append(closers, feedbackLog.Close)

	deps := Deps{
		Embedder:      aiRes.EmbeddingService,
		LLM:           aiRes.LLMService,
		Index:         aiRes.VectorIndex,
		Sessions:      memory.NewSessionStore(),
		Extractors:    normalisers.Default(),
		Prompts:       prompts,
		MetricsSinks:  []driven.MetricsSink{metricsLog},
		MetricsReader: metricsLog,
		FeedbackStore: feedbackLog,
	}

	if settings.Metrics.SQLitePath != "" {
		store, err := sqlite.NewStore(settings.Metrics.SQLitePath)
		if err != nil {
			return fail(fmt.Errorf("open metrics database: %w", err))
		}
		closers = append(closers, store.Close)
		mirror := store.MetricsStore()
		deps.MetricsSinks = append(deps.MetricsSinks, mirror)
		deps.MetricsReader = mirror
		deps.FeedbackStore = FanOutFeedback(feedbackLog, store.FeedbackStore())
		logger.Debug("Mirroring metrics into %s", store.Path())
	}

	a := Assemble(settings, deps)
	a.Prompts = prompts
	a.closers = append(closers, a.closers...)
	return a, nil
}

// Assemble wires deps into services. It does not take ownership of deps
// beyond what Close releases.
func Assemble(settings domain.AppSettings, deps Deps) *App {
	if deps.Sessions == nil {
		deps.Sessions = memory.NewSessionStore()
	}
	if deps.Extractors == nil {
		deps.Extractors = normalisers.Default()
	}

	ingest := services.NewIngestService(deps.Extractors, chunker.FromConfig(settings.Chunking), deps.Embedder, deps.Index)

	reranker := services.NewReranker(deps.LLM, deps.Prompts, settings.Retrieval.SnippetChars)
	retrieval := services.NewRetrievalService(deps.Embedder, deps.Index, reranker)

	recorder := services.NewMetricsRecorder(settings.Metrics.Pricing, deps.MetricsSinks...)
	chat := services.NewChatService(ingest, retrieval, deps.Sessions, deps.LLM,
		services.NewPromptAssembler(deps.Prompts), recorder)
	chat.SetRetrievalOptions(settings.Retrieval.Options())
	chat.SetTemperature(settings.LLM.Temperature)

	eval := services.NewEvalService(retrieval, chat, deps.LLM, deps.Prompts)
	eval.SetIngest(ingest)
	eval.SetEmbedder(deps.Embedder)

	a := &App{
		Settings:  settings,
		Ingest:    ingest,
		Retrieval: retrieval,
		Chat:      chat,
		Eval:      eval,
	}
	if deps.MetricsReader != nil {
		a.Metrics = services.NewMetricsService(deps.MetricsReader)
	}
	if deps.FeedbackStore != nil {
		a.Feedback = services.NewFeedbackService(deps.FeedbackStore)
	}
	return a
}

// WatchPrompts reloads prompt templates when their files change, until ctx ends.
func (a *App) WatchPrompts(ctx context.Context) {
	if a.Prompts == nil {
		return
	}
	if err := a.Prompts.Watch(ctx); err != nil {
		logger.Warn("Prompt files will not be reloaded: %v", err)
	}
}

// Close releases every adapter New opened.
func (a *App) Close() error {
	err := closeAll(a.closers)
	a.closers = nil
	return err
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
