package qdrant

import (
	"context"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	collections map[string]bool
	created     *qdrant.CreateCollection
	upserted    *qdrant.UpsertPoints
	queries     []*qdrant.QueryPoints
	pages       [][]*qdrant.ScoredPoint
	closed      bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{collections: make(map[string]bool)}
}

func (f *fakeClient) CollectionExists(_ context.Context, name string) (bool, error) {
	return f.collections[name], nil
}

func (f *fakeClient) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.created = req
	f.collections[req.CollectionName] = true
	return nil
}

func (f *fakeClient) DeleteCollection(_ context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeClient) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserted = req
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queries = append(f.queries, req)
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func scored(id uint64, score float32, text string) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id:    qdrant.NewIDNum(id),
		Score: score,
		Payload: map[string]*qdrant.Value{
			index.FieldText:     qdrant.NewValueString(text),
			index.FieldMetadata: qdrant.NewValueString(`{"filename":"a.txt"}`),
		},
	}
}

func params(limit int) index.SearchParams {
	return index.SearchParams{
		Limit:        limit,
		Metric:       index.MetricCosine,
		Band:         index.DefaultBand,
		OutputFields: index.DefaultOutputFields,
	}
}

func TestCreateAndDropCollection(t *testing.T) {
	fc := newFakeClient()
	b := newBackend(fc)
	ctx := context.Background()

	require.NoError(t, b.CreateCollection(ctx, "docs", 1536))
	require.NotNil(t, fc.created)
	vp := fc.created.GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(1536), vp.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, vp.GetDistance())

	ok, err := b.HasCollection(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.DropCollection(ctx, "docs"))
	require.NoError(t, b.DropCollection(ctx, "docs"))
	ok, _ = b.HasCollection(ctx, "docs")
	assert.False(t, ok)

	assert.ErrorIs(t, b.CreateCollection(ctx, "x", 0), index.ErrInvalidDimension)
}

func TestUpsertBuildsPoints(t *testing.T) {
	fc := newFakeClient()
	b := newBackend(fc)

	err := b.Upsert(context.Background(), "docs", []core.VectorRecord{
		{ID: 4, Text: "hello", Metadata: `{"page_number":1}`, Vector: []float32{0.6, 0.8}},
	})
	require.NoError(t, err)
	require.NotNil(t, fc.upserted)
	assert.Equal(t, "docs", fc.upserted.CollectionName)
	assert.True(t, fc.upserted.GetWait())
	require.Len(t, fc.upserted.Points, 1)

	p := fc.upserted.Points[0]
	assert.Equal(t, uint64(4), p.GetId().GetNum())
	assert.Equal(t, "hello", p.GetPayload()[index.FieldText].GetStringValue())
	assert.Equal(t, `{"page_number":1}`, p.GetPayload()[index.FieldMetadata].GetStringValue())
}

func TestUpsertRejectsNegativeID(t *testing.T) {
	b := newBackend(newFakeClient())
	err := b.Upsert(context.Background(), "docs", []core.VectorRecord{{ID: -1, Vector: []float32{1}}})
	assert.Error(t, err)
}

func TestSearchFiltersBandAndStopsAtLimit(t *testing.T) {
	fc := newFakeClient()
	fc.pages = [][]*qdrant.ScoredPoint{{
		scored(1, 0.93, "too close"),
		scored(2, 0.49, "in band"),
		scored(3, 0.44, "also in band"),
	}}
	b := newBackend(fc)

	hits, err := b.Search(context.Background(), "docs", []float32{1, 0}, params(3))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].ID)
	assert.Equal(t, "in band", hits[0].Text)
	assert.Equal(t, `{"filename":"a.txt"}`, hits[0].Metadata)
	assert.Equal(t, int64(3), hits[1].ID)

	require.Len(t, fc.queries, 1)
	q := fc.queries[0]
	assert.Equal(t, index.DefaultBand.Radius, q.GetScoreThreshold())
	assert.Equal(t, uint64(minPageSize), q.GetLimit())
	assert.Equal(t, uint64(0), q.GetOffset())
}

func TestSearchPagesPastOutOfBandPoints(t *testing.T) {
	fc := newFakeClient()
	first := make([]*qdrant.ScoredPoint, minPageSize)
	for i := range first {
		first[i] = scored(uint64(100+i), 0.9, "too close")
	}
	fc.pages = [][]*qdrant.ScoredPoint{first, {scored(7, 0.45, "found")}}
	b := newBackend(fc)

	hits, err := b.Search(context.Background(), "docs", []float32{1, 0}, params(1))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(7), hits[0].ID)

	require.Len(t, fc.queries, 2)
	assert.Equal(t, uint64(minPageSize), fc.queries[1].GetOffset())
}

func TestSearchRejectsOtherMetrics(t *testing.T) {
	b := newBackend(newFakeClient())
	_, err := b.Search(context.Background(), "docs", []float32{1}, index.SearchParams{Limit: 1, Metric: "DOT"})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	fc := newFakeClient()
	require.NoError(t, newBackend(fc).Close())
	assert.True(t, fc.closed)
}
