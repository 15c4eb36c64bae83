package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force cosine index held in process memory.
// Contents are lost on restart.
type VectorIndex struct {
	mu         sync.RWMutex
	dimensions int
	entries    []vectorEntry
	positions  map[int64]int
}

type vectorEntry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// NewVectorIndex creates an empty index for vectors of the given size.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dimensions: dimensions,
		positions:  make(map[int64]int),
	}
}

// Upsert inserts items, replacing any entry with the same chunk id in place.
// Replaced entries keep their original insertion position.
func (x *VectorIndex) Upsert(_ context.Context, items []domain.IndexedVector) error {
	if len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if len(it.Vector) != x.dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, it.ID, len(it.Vector), x.dimensions)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range items {
		entry := vectorEntry{
			chunk:  it.Chunk,
			vector: append([]float32(nil), it.Vector...),
			norm:   norm(it.Vector),
		}
		if pos, ok := x.positions[it.ID]; ok {
			x.entries[pos] = entry
			continue
		}
		x.positions[it.ID] = len(x.entries)
		x.entries = append(x.entries, entry)
	}
	return nil
}

// Search returns up to k entries by cosine similarity, highest first.
// Equal scores keep insertion order.
func (x *VectorIndex) Search(_ context.Context, query []float32, k int) ([]domain.Candidate, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dimensions)
	}
	if k <= 0 {
		return []domain.Candidate{}, nil
	}

	x.mu.RLock()
	qn := norm(query)
	results := make([]domain.Candidate, len(x.entries))
	for i, e := range x.entries {
		results[i] = domain.Candidate{Chunk: e.chunk, Score: cosine(query, qn, e.vector, e.norm)}
	}
	x.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (x *VectorIndex) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// Dimensions returns the configured vector size.
func (x *VectorIndex) Dimensions() int {
	return x.dimensions
}

// Reset discards every entry.
func (x *VectorIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
	x.positions = make(map[int64]int)
}

// Close is a no-op for the memory index.
func (x *VectorIndex) Close() error {
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine is zero when either vector has zero length.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
