// Package local provides an in-process embedding service backed by hugot.
//
// The model is a sentence-transformer exported to ONNX and run on hugot's
// pure Go backend, so no network service is involved once the model files
// are on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultDimensions = 384
	DefaultBatchSize  = 32
)

// Config holds configuration for the local embedding service.
type Config struct {
	// ModelPath is the directory holding the ONNX model and tokenizer.
	// When it does not exist and Download is set, the model is fetched into it.
	ModelPath string

	// Model is the Hugging Face model name (default: all-MiniLM-L6-v2).
	Model string

	// Dimensions is the embedding vector size.
	Dimensions int

	// BatchSize bounds how many texts go through the pipeline at once.
	BatchSize int

	// Download fetches the model when ModelPath is missing.
	Download bool
}

// EmbeddingService embeds text with a local feature-extraction pipeline.
type EmbeddingService struct {
	mu         sync.Mutex
	session    *hugot.Session
	pipeline   *pipelines.FeatureExtractionPipeline
	model      string
	dimensions int
	batchSize  int
}

// NewEmbeddingService loads the model and starts a hugot session.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: local embeddings need embedding.model_path", domain.ErrInvalidInput)
	}

	modelPath, err := prepareModel(cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("%w: create hugot session: %w", domain.ErrEmbeddingUnavailable, err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "docqa-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			logger.Warn("hugot session cleanup failed: %v", destroyErr)
		}
		return nil, fmt.Errorf("%w: load model %s: %w", domain.ErrEmbeddingUnavailable, modelPath, err)
	}

	return &EmbeddingService{
		session:    session,
		pipeline:   pipeline,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
	}, nil
}

// prepareModel returns the model directory, downloading it if allowed.
func prepareModel(cfg Config) (string, error) {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		return cfg.ModelPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat model path: %w", err)
	}
	if !cfg.Download {
		return "", fmt.Errorf("%w: model not found at %s", domain.ErrEmbeddingUnavailable, cfg.ModelPath)
	}

	parent := filepath.Dir(cfg.ModelPath)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", fmt.Errorf("creating model directory: %w", err)
	}
	logger.Info("Downloading %s into %s", cfg.Model, parent)
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	path, err := hugot.DownloadModel(cfg.Model, parent, opts)
	if err != nil {
		return "", fmt.Errorf("%w: download model: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return path, nil
}

// Embed runs the texts through the pipeline in batches.
// The pipeline is not safe for concurrent use, so calls are serialised.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil, fmt.Errorf("%w: local embedder is closed", domain.ErrEmbeddingUnavailable)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := append([]string(nil), texts[start:min(start+s.batchSize, len(texts))]...)
		for i, t := range batch {
			// Empty input makes the tokenizer produce no tokens at all.
			if strings.TrimSpace(t) == "" {
				batch[i] = " "
			}
		}
		result, err := s.pipeline.RunPipeline(batch)
		if err != nil {
			return nil, fmt.Errorf("%w: run pipeline: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(result.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: pipeline returned %d embeddings for %d texts",
				domain.ErrEmbeddingUnavailable, len(result.Embeddings), len(batch))
		}
		out = append(out, result.Embeddings...)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short sample and checks its size.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	vecs, err := s.Embed(ctx, []string{"ping"})
	if err != nil {
		return err
	}
	if len(vecs[0]) != s.dimensions {
		return fmt.Errorf("%w: model produces %d dimensions, configured %d",
			domain.ErrDimensionMismatch, len(vecs[0]), s.dimensions)
	}
	return nil
}

// Close destroys the hugot session.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session, s.pipeline = nil, nil
	return err
}
