package chromem

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

func searchParams(limit int) index.SearchParams {
	return index.SearchParams{
		Limit:        limit,
		Metric:       index.MetricCosine,
		Band:         index.DefaultBand,
		OutputFields: index.DefaultOutputFields,
	}
}

func TestCollectionLifecycle(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	ok, err := b.HasCollection(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.CreateCollection(ctx, "docs", 2))
	ok, err = b.HasCollection(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.DropCollection(ctx, "docs"))
	ok, err = b.HasCollection(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, b.DropCollection(ctx, "never-created"))
}

func TestUpsertAndBandSearch(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.CreateCollection(ctx, "docs", 2))

	require.NoError(t, b.Upsert(ctx, "docs", []core.VectorRecord{
		{ID: 0, Text: "nearest", Metadata: `{"page_number":1}`, Vector: unitAt(0.95)},
		{ID: 1, Text: "in band low", Metadata: `{"page_number":2}`, Vector: unitAt(0.43)},
		{ID: 2, Text: "in band high", Metadata: `{"page_number":3}`, Vector: unitAt(0.48)},
		{ID: 3, Text: "far", Metadata: `{"page_number":4}`, Vector: unitAt(0.1)},
	}))

	hits, err := b.Search(ctx, "docs", unitAt(1), searchParams(3))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].ID)
	assert.Equal(t, "in band high", hits[0].Text)
	assert.Equal(t, `{"page_number":3}`, hits[0].Metadata)
	assert.Equal(t, int64(1), hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = b.Search(ctx, "docs", unitAt(1), searchParams(1))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)
}

func TestUpsertReplacesByID(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.CreateCollection(ctx, "docs", 2))

	require.NoError(t, b.Upsert(ctx, "docs", []core.VectorRecord{{ID: 5, Text: "v1", Vector: unitAt(0.45)}}))
	require.NoError(t, b.Upsert(ctx, "docs", []core.VectorRecord{{ID: 5, Text: "v2", Vector: unitAt(0.45)}}))

	n, err := b.(*Backend).Count("docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := b.Search(ctx, "docs", unitAt(1), searchParams(3))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Text)
}

func TestSearchEmptyCollection(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.CreateCollection(ctx, "docs", 2))

	hits, err := b.Search(ctx, "docs", unitAt(1), searchParams(3))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestErrors(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	_, err := b.Search(ctx, "missing", unitAt(1), searchParams(3))
	assert.ErrorIs(t, err, index.ErrCollectionNotFound)

	err = b.Upsert(ctx, "missing", []core.VectorRecord{{ID: 1, Vector: unitAt(1)}})
	assert.ErrorIs(t, err, index.ErrCollectionNotFound)

	require.NoError(t, b.CreateCollection(ctx, "docs", 2))
	err = b.Upsert(ctx, "docs", []core.VectorRecord{{ID: 1, Text: "x", Vector: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	assert.ErrorIs(t, b.CreateCollection(ctx, "bad", 0), index.ErrInvalidDimension)

	_, err = b.Search(ctx, "docs", unitAt(1), index.SearchParams{Limit: 1, Metric: "L2"})
	assert.Error(t, err)
}

func TestPersistentBackendSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewPersistentBackend(dir, false)
	require.NoError(t, err)
	require.NoError(t, b.CreateCollection(ctx, "docs", 2))
	require.NoError(t, b.Upsert(ctx, "docs", []core.VectorRecord{{ID: 3, Text: "kept", Vector: unitAt(0.45)}}))
	require.NoError(t, b.Close())

	b, err = NewPersistentBackend(dir, false)
	require.NoError(t, err)
	hits, err := b.Search(ctx, "docs", unitAt(1), searchParams(3))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].ID)
	assert.Equal(t, "kept", hits[0].Text)
}
