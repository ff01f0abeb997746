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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// Collection is the vector collection to rebuild.
	Collection string

	// TableName is the checkpoint table to read.
	TableName string

	// BatchSize is the number of chunks upserted per call.
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks).
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Collection:     "collection",
		TableName:      storage.DefaultTableName,
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Index is the part of index.Gateway the reembedder needs.
type Index interface {
	Upserter
	CreateCollection(ctx context.Context, name string) error
}

var _ Index = (*index.Gateway)(nil)

// Reembedder rebuilds a collection from the checkpoint table.
type Reembedder struct {
	repo     storage.CheckpointRepository
	index    Index
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.CheckpointRepository, idx Index, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:     repo,
		index:    idx,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembedder", "collection", config.Collection),
	}, nil
}

// Run loads the checkpoint, recreates the collection and upserts every
// chunk. It returns the number of chunks indexed. A missing checkpoint
// leaves an empty collection.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	table, err := r.repo.LoadTable(ctx, r.config.TableName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		table = core.NewChunkTable()
	case err != nil:
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := r.index.CreateCollection(ctx, r.config.Collection); err != nil {
		return 0, fmt.Errorf("failed to recreate collection: %w", err)
	}

	total := table.Len()
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in checkpoint (0 chunks)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	processor := NewBatchProcessor(r.index, r.config.Collection, r.config.MaxRetries, r.config.RetryDelay)
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = NewTableIterator(table, r.config.BatchSize).ForEach(ctx, func(chunks []core.Chunk) error {
		if err := processor.Process(ctx, chunks); err != nil {
			return err
		}
		tracker.Increment(len(chunks))
		return nil
	})
	if err != nil {
		done := tracker.Current()
		r.logger.Error("re-embedding stopped", "indexed", done, "total", total, "err", err)
		return done, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Indexed %d chunks in %v\n",
		total, elapsed.Round(time.Millisecond))
	r.logger.Info("re-embedding complete", "chunks", total, "elapsed", elapsed)

	return total, nil
}
