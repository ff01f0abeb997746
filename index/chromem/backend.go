// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chromem implements index.Backend on the embedded chromem-go
// vector database, either in memory or persisted to a directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
)

const metaKeyDimension = "dimension"

// Backend stores collections in a chromem-go DB.
type Backend struct {
	db     *chromem.DB
	mu     sync.RWMutex
	dims   map[string]int
	logger *slog.Logger
}

var _ index.Backend = (*Backend)(nil)

// NewMemoryBackend returns a backend whose collections live only in memory.
func NewMemoryBackend() index.Backend {
	return newBackend(chromem.NewDB())
}

// NewPersistentBackend opens (or creates) a chromem DB rooted at dir.
func NewPersistentBackend(dir string, compress bool) (index.Backend, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db at %s: %w", dir, err)
	}
	return newBackend(db), nil
}

func newBackend(db *chromem.DB) *Backend {
	return &Backend{
		db:     db,
		dims:   make(map[string]int),
		logger: slog.Default().With("component", "chromem-backend"),
	}
}

// noEmbedding keeps chromem from falling back to its default remote
// embedder. Records always arrive with vectors.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem backend requires precomputed embeddings")
}

// HasCollection reports whether the collection exists.
func (b *Backend) HasCollection(_ context.Context, name string) (bool, error) {
	return b.db.GetCollection(name, noEmbedding) != nil, nil
}

// DropCollection deletes the collection if present.
func (b *Backend) DropCollection(_ context.Context, name string) error {
	b.mu.Lock()
	delete(b.dims, name)
	b.mu.Unlock()
	return b.db.DeleteCollection(name)
}

// CreateCollection creates an empty collection for dim-length vectors.
func (b *Backend) CreateCollection(_ context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", index.ErrInvalidDimension, dim)
	}
	meta := map[string]string{metaKeyDimension: strconv.Itoa(dim)}
	if _, err := b.db.CreateCollection(name, meta, noEmbedding); err != nil {
		return err
	}
	b.mu.Lock()
	b.dims[name] = dim
	b.mu.Unlock()
	return nil
}

func (b *Backend) collection(name string) (*chromem.Collection, error) {
	c := b.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", index.ErrCollectionNotFound, name)
	}
	return c, nil
}

// Upsert adds records keyed by their decimal id. Existing ids are replaced.
func (b *Backend) Upsert(ctx context.Context, name string, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	c, err := b.collection(name)
	if err != nil {
		return err
	}

	b.mu.RLock()
	dim, known := b.dims[name]
	b.mu.RUnlock()

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if known && len(r.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d values, collection expects %d",
				index.ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
		docs[i] = chromem.Document{
			ID:        strconv.FormatInt(r.ID, 10),
			Metadata:  map[string]string{index.FieldMetadata: r.Metadata},
			Embedding: r.Vector,
			Content:   r.Text,
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return err
	}
	b.logger.Debug("added documents", "collection", name, "count", len(docs))
	return nil
}

// Search ranks the whole collection and keeps hits inside the band.
func (b *Backend) Search(ctx context.Context, name string, vector []float32, params index.SearchParams) ([]core.SearchHit, error) {
	if params.Metric != "" && params.Metric != index.MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", params.Metric)
	}
	c, err := b.collection(name)
	if err != nil {
		return nil, err
	}

	n := c.Count()
	if n == 0 || params.Limit <= 0 {
		return []core.SearchHit{}, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]core.SearchHit, 0, params.Limit)
	for _, r := range results {
		if !params.Band.Contains(r.Similarity) {
			continue
		}
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed record id %q: %w", r.ID, err)
		}
		hits = append(hits, core.SearchHit{
			ID:       id,
			Text:     r.Content,
			Metadata: r.Metadata[index.FieldMetadata],
			Score:    r.Similarity,
		})
		if len(hits) == params.Limit {
			break
		}
	}
	return hits, nil
}

// Count returns the number of records in the collection.
func (b *Backend) Count(name string) (int, error) {
	c, err := b.collection(name)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Close is a no-op. Persistent collections are written on every change.
func (b *Backend) Close() error {
	return nil
}
