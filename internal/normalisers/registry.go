package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]driven.TextExtractor
}

// NewRegistry creates a registry holding the given extractors.
// Later extractors win when extensions collide.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.TextExtractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// Default returns a registry for the .txt/.pdf allow-list.
func Default() *Registry {
	return NewRegistry(plaintext.New(), pdf.New())
}

// Supports reports whether ext (with or without a leading dot) is on the allow-list.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[normaliseExt(ext)]
	return ok
}

// Extensions returns the sorted allow-list.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches on the extension of path.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := normaliseExt(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s (supported: %s)",
			domain.ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return e.Extract(ctx, path)
}

func normaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
