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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/extraction"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/metrics"
	"github.com/poiesic/docindex/search"
	"github.com/poiesic/docindex/storage"
)

// DefaultCollection is the vector collection used when none is configured.
const DefaultCollection = "collection"

// Normalizer places a received file where extraction can read it.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (string, error)
}

// Index is the part of index.Gateway the pipeline needs.
type Index interface {
	search.Index
	CreateCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, records []core.VectorRecord) error
}

var _ Index = (*index.Gateway)(nil)

// Result summarizes one file's run.
type Result struct {
	RunID              string
	Path               string
	State              State
	ChunksAdded        int
	DuplicatesRejected int
	// ChunksIndexed counts rows upserted by this run, including rows left
	// unindexed by an earlier failed run.
	ChunksIndexed int
	Duration           time.Duration
}

// Pipeline ingests files into the chunk table and the vector collection.
type Pipeline struct {
	repo       storage.CheckpointRepository
	extractor  extraction.Extractor
	index      Index
	normalizer Normalizer
	searcher   *search.Searcher
	metrics    *metrics.Metrics
	collection string
	tableName  string
	limit      int
	logger     *slog.Logger

	mu    sync.Mutex
	table *core.ChunkTable
	// checkpointed rows that are not in the collection yet
	pending []core.Chunk
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithNormalizer sets the normalizer run before extraction.
// Without one, files are extracted where they are.
func WithNormalizer(n Normalizer) Option {
	return func(p *Pipeline) error {
		p.normalizer = n
		return nil
	}
}

// WithMetrics records stage timings and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithCollection sets the vector collection name.
// Default is DefaultCollection.
func WithCollection(name string) Option {
	return func(p *Pipeline) error {
		if name == "" {
			return search.ErrCollectionRequired
		}
		p.collection = name
		return nil
	}
}

// WithTableName sets the checkpoint table name.
// Default is storage.DefaultTableName.
func WithTableName(name string) Option {
	return func(p *Pipeline) error {
		if err := storage.ValidateTableName(name); err != nil {
			return err
		}
		p.tableName = name
		return nil
	}
}

// WithSearchLimit sets how many context strings Query returns.
// Default is index.DefaultLimit.
func WithSearchLimit(limit int) Option {
	return func(p *Pipeline) error {
		if limit > 0 {
			p.limit = limit
		}
		return nil
	}
}

// NewPipeline creates a pipeline. Call Open before ingesting.
func NewPipeline(
	repo storage.CheckpointRepository,
	extractor extraction.Extractor,
	idx Index,
	opts ...Option,
) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}

	p := &Pipeline{
		repo:       repo,
		extractor:  extractor,
		index:      idx,
		collection: DefaultCollection,
		tableName:  storage.DefaultTableName,
		limit:      index.DefaultLimit,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline", "collection", p.collection)

	searcher, err := search.NewSearcher(idx, p.collection,
		search.WithLogger(p.logger), search.WithMetrics(p.metrics), search.WithLimit(p.limit))
	if err != nil {
		return nil, err
	}
	p.searcher = searcher

	return p, nil
}

// Open loads the checkpoint table and rebuilds the collection from it. A
// missing checkpoint starts an empty table and an empty collection.
//
// Loading renumbers rows, so ids held by a collection from an earlier
// process no longer match the table and the collection is always recreated.
// If the rebuild fails the rows stay pending and are upserted by the next
// Ingest or Reindex.
func (p *Pipeline) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	table, err := p.repo.LoadTable(ctx, p.tableName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p.logger.Info("no checkpoint found, starting empty", "table", p.tableName)
		table = core.NewChunkTable()
	case err != nil:
		return err
	}

	if err := p.index.CreateCollection(ctx, p.collection); err != nil {
		return err
	}

	p.table = table
	p.pending = table.Rows()
	p.metrics.SetTableRows(table.Len())

	if err := p.flushPending(ctx); err != nil {
		return fmt.Errorf("re-indexing %d rows: %w", table.Len(), err)
	}
	p.logger.Info("pipeline open", "rows", table.Len())
	return nil
}

// Ingest runs one file through every stage. Runs are serialized.
//
// On success the returned Result is in StateIndexed. A file whose elements
// have no grouping rule returns a Result in StateSkipped together with an
// error wrapping core.ErrUnsupportedFiletype; the table is unchanged. Any
// other failure returns a Result in StateFailed and a *PipelineError.
func (p *Pipeline) Ingest(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Path: path, State: StateReceived}
	logger := p.logger.With("run_id", res.RunID, "path", path)
	logger.Info("ingesting file")

	err := p.run(ctx, res, logger)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		p.metrics.RecordIngestion(metrics.OutcomeIndexed, res.ChunksAdded, res.DuplicatesRejected)
		logger.Info("file indexed",
			"added", res.ChunksAdded, "rejected", res.DuplicatesRejected, "duration", res.Duration)
	case res.State == StateSkipped:
		p.metrics.RecordIngestion(metrics.OutcomeUnsupported, 0, 0)
		logger.Warn("file skipped", "err", err)
	default:
		logger.Error("file failed", "err", err)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result, logger *slog.Logger) error {
	fail := func(stage State, err error) error {
		res.State = StateFailed
		p.metrics.RecordFailure(stage.String())
		return &PipelineError{Path: res.Path, Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(StateReceived, err)
	}

	path := res.Path
	if p.normalizer != nil {
		stageStart := time.Now()
		normalized, err := p.normalizer.Normalize(ctx, path)
		if err != nil {
			return fail(StateNormalized, err)
		}
		p.metrics.ObserveStage(StateNormalized.String(), stageStart)
		logger.Debug("normalized", "dst", normalized)
		path = normalized
	}
	res.State = StateNormalized

	stageStart := time.Now()
	elements, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return fail(StateExtracted, err)
	}
	p.metrics.ObserveStage(StateExtracted.String(), stageStart)
	res.State = StateExtracted
	logger.Debug("extracted", "elements", len(elements))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.table == nil {
		return fail(StateChunked, ErrNotOpen)
	}

	candidates, err := chunking.Assemble(elements, p.table.IDBase())
	if errors.Is(err, core.ErrUnsupportedFiletype) {
		res.State = StateSkipped
		return err
	}
	if err != nil {
		return fail(StateChunked, err)
	}
	res.State = StateChunked

	merged := storage.Merge(p.table, candidates)
	res.DuplicatesRejected = merged.Rejected

	if len(merged.Added) > 0 {
		stageStart = time.Now()
		if err := p.repo.SaveTable(ctx, merged.Table, p.tableName); err != nil {
			return fail(StatePersisted, err)
		}
		p.metrics.ObserveStage(StatePersisted.String(), stageStart)
		p.table = merged.Table
		p.pending = append(p.pending, merged.Added...)
		p.metrics.SetTableRows(p.table.Len())
	}
	res.ChunksAdded = len(merged.Added)
	res.State = StatePersisted

	if n := len(p.pending); n > 0 {
		stageStart = time.Now()
		if err := p.flushPending(ctx); err != nil {
			return fail(StateIndexed, err)
		}
		p.metrics.ObserveStage(StateIndexed.String(), stageStart)
		res.ChunksIndexed = n
	}
	res.State = StateIndexed
	return nil
}

// flushPending upserts every pending row. On failure the rows stay pending.
func (p *Pipeline) flushPending(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	if err := p.upsert(ctx, p.pending); err != nil {
		return err
	}
	p.logger.Debug("indexed pending rows", "rows", len(p.pending))
	p.pending = nil
	return nil
}

func (p *Pipeline) upsert(ctx context.Context, rows []core.Chunk) error {
	records := make([]core.VectorRecord, len(rows))
	for i, row := range rows {
		records[i] = core.RecordFromChunk(row)
	}
	return p.index.Upsert(ctx, p.collection, records)
}

// Query returns the context strings for text, closest first.
func (p *Pipeline) Query(ctx context.Context, text string) ([]string, error) {
	return p.searcher.Context(ctx, text)
}

// Searcher returns the searcher bound to the pipeline's collection.
func (p *Pipeline) Searcher() *search.Searcher {
	return p.searcher
}

// Reindex drops and recreates the collection and upserts every table row.
func (p *Pipeline) Reindex(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.table == nil {
		return ErrNotOpen
	}

	if err := p.index.CreateCollection(ctx, p.collection); err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}
	p.pending = p.table.Rows()
	if err := p.flushPending(ctx); err != nil {
		return fmt.Errorf("re-indexing %d rows: %w", p.table.Len(), err)
	}
	p.logger.Info("re-indexed collection", "rows", p.table.Len())
	return nil
}

// Table returns a copy of the current chunk table.
func (p *Pipeline) Table() *core.ChunkTable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.Clone()
}

// Collection returns the vector collection name.
func (p *Pipeline) Collection() string {
	return p.collection
}

// TableName returns the checkpoint table name.
func (p *Pipeline) TableName() string {
	return p.tableName
}
