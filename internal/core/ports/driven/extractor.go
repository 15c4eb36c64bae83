package driven

import "context"

// TextExtractor reads a document file into raw text.
// Each extractor handles specific file extensions (e.g. ".pdf").
type TextExtractor interface {
	// Extensions returns the lower-case extensions this extractor handles, dot included.
	Extensions() []string

	// Extract returns the document's text. Paginated formats join pages
	// in page order with newline separators.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorRegistry selects an extractor by file extension.
type ExtractorRegistry interface {
	// Extract dispatches on the path's extension. Unknown extensions fail
	// with domain.ErrUnsupportedFormat naming the extension.
	Extract(ctx context.Context, path string) (string, error)

	// Supports reports whether the extension is on the allow-list.
	Supports(ext string) bool
}
