package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService chunks, embeds and indexes documents.
type IngestService interface {
	// IngestFile extracts text from a .txt or .pdf file and indexes it under source.
	// An empty source defaults to the file's base name.
	IngestFile(ctx context.Context, path, source string) (*domain.IngestResult, error)

	// IngestText indexes already extracted text.
	IngestText(ctx context.Context, source, text string) (*domain.IngestResult, error)

	// HasDocuments reports whether anything has been indexed yet.
	HasDocuments(ctx context.Context) (bool, error)
}
