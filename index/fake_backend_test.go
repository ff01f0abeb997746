package index

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/poiesic/docindex/core"
)

type fakeCollection struct {
	dim     int
	records map[int64]core.VectorRecord
}

type fakeBackend struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	upsertCalls int
	lastParams  SearchParams
	searchErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{collections: make(map[string]*fakeCollection)}
}

func (f *fakeBackend) HasCollection(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeBackend) DropCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, name)
	return nil
}

func (f *fakeBackend) CreateCollection(_ context.Context, name string, dim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; ok {
		return errors.New("collection exists")
	}
	f.collections[name] = &fakeCollection{dim: dim, records: make(map[int64]core.VectorRecord)}
	return nil
}

func (f *fakeBackend) Upsert(_ context.Context, name string, records []core.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	c, ok := f.collections[name]
	if !ok {
		return ErrCollectionNotFound
	}
	for _, r := range records {
		if len(r.Vector) != c.dim {
			return ErrDimensionMismatch
		}
		c.records[r.ID] = r
	}
	return nil
}

func (f *fakeBackend) Search(_ context.Context, name string, vector []float32, params SearchParams) ([]core.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	c, ok := f.collections[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	var hits []core.SearchHit
	for _, r := range c.records {
		score := CosineSimilarity(vector, r.Vector)
		if params.Band.Contains(score) {
			hits = append(hits, core.SearchHit{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > params.Limit {
		hits = hits[:params.Limit]
	}
	return hits, nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collections[name]; ok {
		return len(c.records)
	}
	return 0
}
