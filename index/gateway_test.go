package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitAt returns a 2-d unit vector with cosine similarity s to (1, 0).
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

// tableEmbedder maps known texts to fixed vectors.
func tableEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedderWithDimensions(2)
	m.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		return v, nil
	}
	return m
}

func setupGateway(t *testing.T, backend *fakeBackend, embedder *mock.MockEmbedder, opts ...Option) *Gateway {
	t.Helper()
	g, err := NewGateway(backend, embedder, 2, opts...)
	require.NoError(t, err)
	t.Cleanup(g.Release)
	return g
}

func TestNewGatewayValidation(t *testing.T) {
	embedder := mock.NewMockEmbedder()

	_, err := NewGateway(nil, embedder, 8)
	assert.ErrorIs(t, err, ErrBackendRequired)

	_, err = NewGateway(newFakeBackend(), nil, 8)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewGateway(newFakeBackend(), embedder, 0)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = NewGateway(newFakeBackend(), embedder, 8, WithBand(Band{Radius: 0.5, RangeFilter: 0.5}))
	assert.ErrorIs(t, err, ErrInvalidBand)
}

func TestCreateCollectionDropsExisting(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(map[string][]float32{"a": unitAt(1)}))
	ctx := context.Background()

	require.NoError(t, g.CreateCollection(ctx, "docs"))
	require.NoError(t, g.Upsert(ctx, "docs", []core.VectorRecord{{ID: 1, Text: "a"}}))
	assert.Equal(t, 1, backend.count("docs"))

	require.NoError(t, g.CreateCollection(ctx, "docs"))
	assert.Equal(t, 0, backend.count("docs"))
}

func TestEmbed(t *testing.T) {
	g := setupGateway(t, newFakeBackend(), tableEmbedder(map[string][]float32{
		"ok":    {3, 4},
		"short": {1},
	}))
	ctx := context.Background()

	vec, err := g.Embed(ctx, "ok")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	_, err = g.Embed(ctx, "short")
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = g.Embed(ctx, "unknown")
	assert.ErrorIs(t, err, core.ErrEmbedding)
}

func TestUpsertIsAllOrNothing(t *testing.T) {
	vectors := map[string][]float32{
		"r1": unitAt(0.45), "r2": unitAt(0.45), "r4": unitAt(0.45), "r5": unitAt(0.45),
	}
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(vectors), WithPoolSize(2))
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "docs"))

	records := make([]core.VectorRecord, 5)
	for i := range records {
		records[i] = core.VectorRecord{ID: int64(i + 1), Text: fmt.Sprintf("r%d", i+1)}
	}

	err := g.Upsert(ctx, "docs", records)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, 0, backend.count("docs"))
	assert.Equal(t, 0, backend.upsertCalls, "backend must not be called after an embed failure")
}

func TestUpsertReplacesSameID(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(map[string][]float32{
		"old": unitAt(0.45), "new": unitAt(0.45),
	}))
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "docs"))

	require.NoError(t, g.Upsert(ctx, "docs", []core.VectorRecord{{ID: 7, Text: "old"}}))
	require.NoError(t, g.Upsert(ctx, "docs", []core.VectorRecord{{ID: 7, Text: "new"}}))

	assert.Equal(t, 1, backend.count("docs"))
	assert.Equal(t, "new", backend.collections["docs"].records[7].Text)
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, mock.NewMockEmbedderWithDimensions(2))
	require.NoError(t, g.Upsert(context.Background(), "docs", nil))
	assert.Equal(t, 0, backend.upsertCalls)
}

func TestUpsertIndexFailure(t *testing.T) {
	g := setupGateway(t, newFakeBackend(), tableEmbedder(map[string][]float32{"a": unitAt(1)}))

	err := g.Upsert(context.Background(), "missing", []core.VectorRecord{{ID: 1, Text: "a"}})
	assert.ErrorIs(t, err, core.ErrIndex)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestSearchExcludesNearestOutsideBand(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(map[string][]float32{
		"query": unitAt(1),
		"close": unitAt(0.9),
	}), WithBand(Band{Radius: 0.4, RangeFilter: 0.5}))
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "docs"))
	require.NoError(t, g.Upsert(ctx, "docs", []core.VectorRecord{{ID: 1, Text: "close"}}))

	hits, err := g.Search(ctx, "docs", "query", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchOrdersAndLimits(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(map[string][]float32{
		"query": unitAt(1),
		"a":     unitAt(0.42),
		"b":     unitAt(0.49),
		"c":     unitAt(0.45),
		"d":     unitAt(0.47),
		"e":     unitAt(0.2),
	}))
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "docs"))

	var records []core.VectorRecord
	for i, text := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, core.VectorRecord{ID: int64(i), Text: text, Metadata: `{"filename":"` + text + `"}`})
	}
	require.NoError(t, g.Upsert(ctx, "docs", records))

	hits, err := g.Search(ctx, "docs", "query", 0)
	require.NoError(t, err)
	require.Len(t, hits, DefaultLimit)
	assert.Equal(t, "b", hits[0].Text)
	assert.Equal(t, "d", hits[1].Text)
	assert.Equal(t, "c", hits[2].Text)
	assert.Equal(t, `{"filename":"b"}`, hits[0].Metadata)

	assert.Equal(t, MetricCosine, backend.lastParams.Metric)
	assert.Equal(t, DefaultOutputFields, backend.lastParams.OutputFields)
	assert.Equal(t, DefaultBand, backend.lastParams.Band)
}

func TestSearchFailuresReturnNoPartialResult(t *testing.T) {
	backend := newFakeBackend()
	g := setupGateway(t, backend, tableEmbedder(map[string][]float32{"query": unitAt(1)}))
	ctx := context.Background()
	require.NoError(t, g.CreateCollection(ctx, "docs"))

	hits, err := g.Search(ctx, "docs", "not embeddable", 3)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Nil(t, hits)

	backend.searchErr = errors.New("index down")
	hits, err = g.Search(ctx, "docs", "query", 3)
	assert.ErrorIs(t, err, core.ErrIndex)
	assert.Nil(t, hits)
}
