package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func item(id int64, v ...float32) domain.IndexedVector {
	return domain.IndexedVector{Chunk: domain.Chunk{ID: id, Text: fmt.Sprintf("chunk %d", id), Source: "a.txt"}, Vector: v}
}

func ids(cs []domain.Candidate) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestVectorIndex_SearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{
		item(0, 0, 1),
		item(1, 1, 0),
		item(2, 1, 1),
		item(3, 10, 0.5),
	}))

	got, err := idx.Search(ctx, []float32{1, 0}, 3)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2}, ids(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.7071, got[2].Score, 1e-4)
}

func TestVectorIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(5, 1, 0), item(2, 2, 0), item(9, 3, 0)}))

	for range 5 {
		got, err := idx.Search(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{5, 2, 9}, ids(got))
	}
}

func TestVectorIndex_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(0, 1, 0), item(1, 0, 1)}))

	replaced := item(0, 0, 1)
	replaced.Text = "new text"
	require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{replaced}))

	n, _ := idx.Count(ctx)
	assert.Equal(t, 2, n)
	got, err := idx.Search(ctx, []float32{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids(got))
	assert.Equal(t, "new text", got[0].Text)
}

func TestVectorIndex_EdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("empty upsert is a no-op", func(t *testing.T) {
		idx := NewVectorIndex(3)
		require.NoError(t, idx.Upsert(ctx, nil))
		n, _ := idx.Count(ctx)
		assert.Zero(t, n)
	})

	t.Run("empty index", func(t *testing.T) {
		got, err := NewVectorIndex(3).Search(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("zero k", func(t *testing.T) {
		idx := NewVectorIndex(1)
		require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(0, 1)}))
		got, err := idx.Search(ctx, []float32{1}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("zero query vector", func(t *testing.T) {
		idx := NewVectorIndex(2)
		require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(0, 1, 0)}))
		got, err := idx.Search(ctx, []float32{0, 0}, 1)
		require.NoError(t, err)
		assert.Zero(t, got[0].Score)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		idx := NewVectorIndex(3)
		err := idx.Upsert(ctx, []domain.IndexedVector{item(0, 1, 0)})
		assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

		_, err = idx.Search(ctx, []float32{1}, 1)
		assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	})

	t.Run("reset", func(t *testing.T) {
		idx := NewVectorIndex(1)
		require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(0, 1)}))
		idx.Reset()
		n, _ := idx.Count(ctx)
		assert.Zero(t, n)
	})
}

func TestVectorIndex_StoresCopies(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	v := item(0, 1, 0)
	require.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{v}))

	v.Vector[0], v.Vector[1] = 0, 1

	got, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestVectorIndex_ConcurrentUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, idx.Upsert(ctx, []domain.IndexedVector{item(int64(i), 1, float32(i))}))
		}()
		go func() {
			defer wg.Done()
			_, err := idx.Search(ctx, []float32{1, 1}, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, _ := idx.Count(ctx)
	assert.Equal(t, 20, n)
}
