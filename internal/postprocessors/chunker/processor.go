// Package chunker splits document text into overlapping word windows.
package chunker

import (
	"iter"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of words shared by consecutive chunks.
const DefaultChunkOverlap = 100

// Processor splits text into windows of at most chunkSize words.
// Consecutive windows share overlap words; the last window may be shorter.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not below the chunk size is reduced to a quarter of it,
// so every window advances by at least one word.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// FromConfig builds a processor from a validated chunk configuration.
func FromConfig(cfg domain.ChunkConfig) *Processor {
	return New(WithChunkSize(cfg.ChunkSize), WithOverlap(cfg.Overlap))
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective window size in words.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the effective overlap in words.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Windows lazily yields the chunk texts of text in document order.
// Words are whitespace-delimited and rejoined with single spaces.
// The sequence is pure, so it may be ranged over more than once.
func (p *Processor) Windows(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		words := strings.Fields(text)
		n := len(words)
		start := 0
		for start < n {
			end := min(n, start+p.chunkSize)
			if !yield(strings.Join(words[start:end], " ")) {
				return
			}
			if end == n {
				return
			}
			next := max(0, end-p.overlap)
			if next <= start {
				next = start + 1
			}
			start = next
		}
	}
}

// Split returns all chunk texts of text. Empty text yields no chunks.
func (p *Processor) Split(text string) []string {
	var out []string
	for w := range p.Windows(text) {
		out = append(out, w)
	}
	return out
}

// Process wraps the windows of text into chunks tagged with source.
// Ids are assigned sequentially starting at firstID.
func (p *Processor) Process(source, text string, firstID int64) []domain.Chunk {
	var chunks []domain.Chunk
	id := firstID
	for w := range p.Windows(text) {
		chunks = append(chunks, domain.Chunk{ID: id, Text: w, Source: source})
		id++
	}
	return chunks
}

// Count returns how many chunks text would produce without building them.
func (p *Processor) Count(text string) int {
	n := 0
	for range p.Windows(text) {
		n++
	}
	return n
}
