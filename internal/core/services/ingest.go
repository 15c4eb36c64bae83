package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultEmbedBatchSize is the number of chunks embedded per request.
const DefaultEmbedBatchSize = 64

// IngestService extracts, chunks, embeds and indexes documents.
type IngestService struct {
	extractors driven.ExtractorRegistry
	chunker    *chunker.Processor
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	batchSize  int

	idMu   sync.Mutex
	nextID int64

	hasDocs atomic.Bool
}

// NewIngestService creates an ingest service writing into index.
// Chunk ids continue from the index's current size.
func NewIngestService(
	extractors driven.ExtractorRegistry,
	chunks *chunker.Processor,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) *IngestService {
	if chunks == nil {
		chunks = chunker.New()
	}
	return &IngestService{
		extractors: extractors,
		chunker:    chunks,
		embedder:   embedder,
		index:      index,
		batchSize:  DefaultEmbedBatchSize,
	}
}

// SetBatchSize overrides the number of chunks per embedding request.
func (s *IngestService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// IngestFile extracts and indexes one .txt or .pdf file.
func (s *IngestService) IngestFile(ctx context.Context, path, source string) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	if source == "" {
		source = filepath.Base(path)
	}
	logger.Debug("Extracting %s as %q", path, source)

	text, err := s.extractors.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.IngestText(ctx, source, text)
}

// IngestText chunks, embeds and upserts text tagged with source.
func (s *IngestService) IngestText(ctx context.Context, source, text string) (*domain.IngestResult, error) {
	windows := s.chunker.Split(text)
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w from %s; upload a document with a text layer", domain.ErrEmptyExtraction, source)
	}
	logger.Debug("%s: %d chunks (size=%d overlap=%d)", source, len(windows), s.chunker.ChunkSize(), s.chunker.Overlap())

	vectors, err := s.embed(ctx, windows)
	if err != nil {
		return nil, err
	}

	first, err := s.reserveIDs(ctx, len(windows))
	if err != nil {
		return nil, err
	}
	items := make([]domain.IndexedVector, len(windows))
	for i, w := range windows {
		items[i] = domain.IndexedVector{
			Chunk:  domain.Chunk{ID: first + int64(i), Text: w, Source: source},
			Vector: vectors[i],
		}
	}

	if err := s.index.Upsert(ctx, items); err != nil {
		return nil, fmt.Errorf("index %s: %w", source, err)
	}
	s.hasDocs.Store(true)

	logger.Info("Indexed %s: %d chunks (ids %d..%d)", source, len(items), first, first+int64(len(items))-1)
	return &domain.IngestResult{Source: source, ChunksIndexed: len(items), FirstID: first}, nil
}

// HasDocuments reports whether anything has been indexed.
func (s *IngestService) HasDocuments(ctx context.Context) (bool, error) {
	if s.hasDocs.Load() {
		return true, nil
	}
	n, err := s.index.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count indexed chunks: %w", err)
	}
	if n > 0 {
		s.hasDocs.Store(true)
	}
	return n > 0, nil
}

func (s *IngestService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(len(texts), start+s.batchSize)
		batch, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, asUnavailable(domain.ErrEmbeddingUnavailable, fmt.Errorf("embed chunks: %w", err))
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks",
				domain.ErrEmbeddingUnavailable, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// reserveIDs hands out a contiguous id range so concurrent uploads never collide.
// The counter starts from the index size the first time it is used.
func (s *IngestService) reserveIDs(ctx context.Context, n int) (int64, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	if s.nextID == 0 {
		count, err := s.index.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count indexed chunks: %w", err)
		}
		s.nextID = int64(count)
	}
	first := s.nextID
	s.nextID += int64(n)
	return first, nil
}
