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

// Package index turns chunk text into vectors and stores them in a vector
// index collection, and answers similarity queries restricted to a
// configurable similarity band.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
)

// Gateway embeds text and talks to a vector index backend.
type Gateway struct {
	backend  Backend
	embedder ai.Embedder
	dim      int
	band     Band
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "index-gateway")
		return nil
	}
}

// WithBand sets the relevance band search hits must fall in.
// Default is DefaultBand.
func WithBand(band Band) Option {
	return func(g *Gateway) error {
		if err := band.Validate(); err != nil {
			return err
		}
		g.band = band
		return nil
	}
}

// WithPoolSize bounds how many embed calls of one upsert run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(g *Gateway) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if g.pool != nil {
			g.pool.Release()
		}
		g.pool = pool
		return nil
	}
}

// NewGateway creates a gateway producing dim-length vectors.
func NewGateway(backend Backend, embedder ai.Embedder, dim int, opts ...Option) (*Gateway, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		backend:  backend,
		embedder: embedder,
		dim:      dim,
		band:     DefaultBand,
		pool:     pool,
		logger:   slog.Default().With("component", "index-gateway"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			g.Release()
			return nil, err
		}
	}

	return g, nil
}

// Dimension returns the vector dimension of created collections.
func (g *Gateway) Dimension() int {
	return g.dim
}

// Band returns the similarity band applied to searches.
func (g *Gateway) Band() Band {
	return g.band
}

// CreateCollection drops name if it exists and recreates it empty.
func (g *Gateway) CreateCollection(ctx context.Context, name string) error {
	exists, err := g.backend.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %w", core.ErrIndex, name, err)
	}
	if exists {
		g.logger.Info("dropping existing collection", "collection", name)
		if err := g.backend.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("%w: dropping collection %q: %w", core.ErrIndex, name, err)
		}
	}
	if err := g.backend.CreateCollection(ctx, name, g.dim); err != nil {
		return fmt.Errorf("%w: creating collection %q: %w", core.ErrIndex, name, err)
	}
	g.logger.Info("created collection", "collection", name, "dim", g.dim)
	return nil
}

// Embed makes one embedding call for text. Failures are not retried.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	if len(vec) != g.dim {
		return nil, fmt.Errorf("%w: %w: expected %d, got %d", core.ErrEmbedding, ErrDimensionMismatch, g.dim, len(vec))
	}
	return NormalizeVector(vec), nil
}

// Upsert embeds every record's text and writes all records in one backend
// call. If any embedding fails nothing is written.
func (g *Gateway) Upsert(ctx context.Context, name string, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	vectors, err := g.embedAll(ctx, records)
	if err != nil {
		g.logger.Error("aborting upsert", "collection", name, "records", len(records), "err", err)
		return err
	}

	out := make([]core.VectorRecord, len(records))
	for i, r := range records {
		r.Vector = vectors[i]
		out[i] = r
	}

	if err := g.backend.Upsert(ctx, name, out); err != nil {
		return fmt.Errorf("%w: upserting into %q: %w", core.ErrIndex, name, err)
	}
	g.logger.Debug("upserted records", "collection", name, "records", len(out))
	return nil
}

func (g *Gateway) embedAll(ctx context.Context, records []core.VectorRecord) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(records))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := range records {
		wg.Add(1)
		err := g.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				fail(fmt.Errorf("%w: %w", core.ErrEmbedding, ctx.Err()))
				return
			}
			vec, err := g.Embed(ctx, records[i].Text)
			if err != nil {
				fail(fmt.Errorf("record %d: %w", records[i].ID, err))
				return
			}
			vectors[i] = vec
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("%w: submitting embed task: %w", core.ErrEmbedding, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// Search embeds query and returns up to limit records inside the band,
// closest first. limit <= 0 means DefaultLimit.
func (g *Gateway) Search(ctx context.Context, name, query string, limit int) ([]core.SearchHit, error) {
	vec, err := g.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return g.SearchVector(ctx, name, vec, limit)
}

// SearchVector is Search for a precomputed query vector.
func (g *Gateway) SearchVector(ctx context.Context, name string, vec []float32, limit int) ([]core.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits, err := g.backend.Search(ctx, name, vec, SearchParams{
		Limit:        limit,
		Metric:       MetricCosine,
		Band:         g.band,
		OutputFields: DefaultOutputFields,
	})
	if err != nil {
		if errors.Is(err, core.ErrIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: searching %q: %w", core.ErrIndex, name, err)
	}

	filtered := hits[:0]
	for _, h := range hits {
		if g.band.Contains(h.Score) {
			filtered = append(filtered, h)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Release releases the embedding worker pool.
func (g *Gateway) Release() {
	if g.pool != nil {
		g.pool.Release()
	}
}

// Close releases the worker pool and closes the backend.
func (g *Gateway) Close() error {
	g.Release()
	return g.backend.Close()
}
