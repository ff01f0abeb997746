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

// Package docindex wires the document ingestion and retrieval pipeline from
// a config.Config: checkpoint store, embedding provider, vector index,
// normalizer, extractor, pipeline and searcher.
package docindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/openai"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/extraction"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/index/chromem"
	"github.com/poiesic/docindex/index/qdrant"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/metrics"
	"github.com/poiesic/docindex/normalize"
	"github.com/poiesic/docindex/reembed"
	"github.com/poiesic/docindex/search"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
	"github.com/poiesic/docindex/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

// System owns every long-lived handle of a running docindex instance.
type System struct {
	cfg        *config.Config
	repo       storage.CheckpointRepository
	provider   ai.AIProvider
	gateway    *index.Gateway
	normalizer *normalize.Normalizer
	pipeline   *ingestion.Pipeline
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	logger     *slog.Logger
}

// Option overrides a component Open would otherwise build from config.
type Option func(*openOptions)

type openOptions struct {
	provider  ai.AIProvider
	backend   index.Backend
	repo      storage.CheckpointRepository
	extractor extraction.Extractor
	registry  *prometheus.Registry
	logger    *slog.Logger
}

// WithProvider uses p instead of an OpenAI-compatible provider.
func WithProvider(p ai.AIProvider) Option {
	return func(o *openOptions) { o.provider = p }
}

// WithIndexBackend uses b instead of the configured index backend.
func WithIndexBackend(b index.Backend) Option {
	return func(o *openOptions) { o.backend = b }
}

// WithCheckpointRepository uses r instead of the configured checkpoint store.
func WithCheckpointRepository(r storage.CheckpointRepository) Option {
	return func(o *openOptions) { o.repo = r }
}

// WithExtractor uses e instead of the default extraction adapter.
func WithExtractor(e extraction.Extractor) Option {
	return func(o *openOptions) { o.extractor = e }
}

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *openOptions) { o.registry = reg }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// Open builds every component from cfg and loads the checkpoint.
// On error, anything already opened is closed.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (_ *System, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	s := &System{
		cfg:      cfg,
		registry: o.registry,
		metrics:  metrics.New(o.registry),
		logger:   o.logger.With("component", "docindex"),
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.repo = o.repo
	if s.repo == nil {
		if s.repo, err = openCheckpoint(cfg.Checkpoint); err != nil {
			return nil, err
		}
	}

	s.provider = o.provider
	if s.provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithAPIKey(cfg.Embedding.APIKey),
			ai.WithDimensions(cfg.Embedding.Dimensions),
		)
		if s.provider, err = openai.NewProvider(aiConfig); err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
	}

	backend := o.backend
	if backend == nil {
		if backend, err = openIndexBackend(cfg.Index); err != nil {
			return nil, err
		}
	}

	gatewayOpts := []index.Option{index.WithBand(cfg.Index.Band()), index.WithLogger(o.logger)}
	if cfg.Index.PoolSize > 0 {
		gatewayOpts = append(gatewayOpts, index.WithPoolSize(cfg.Index.PoolSize))
	}
	if s.gateway, err = index.NewGateway(backend, s.provider.Embedder(), cfg.Embedding.Dimensions, gatewayOpts...); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create index gateway: %w", err)
	}

	s.normalizer, err = normalize.NewNormalizer(cfg.Normalize.DocumentsDir,
		normalize.WithLogger(o.logger),
		normalize.WithConverter(normalize.NewHTTPConverter(cfg.Normalize.ConverterURL, cfg.Normalize.ConverterTimeout)))
	if err != nil {
		return nil, err
	}

	extractor := o.extractor
	if extractor == nil {
		if extractor, err = newExtractor(cfg.OCR, o.logger); err != nil {
			return nil, err
		}
	}

	s.pipeline, err = ingestion.NewPipeline(s.repo, extractor, s.gateway,
		ingestion.WithNormalizer(s.normalizer),
		ingestion.WithMetrics(s.metrics),
		ingestion.WithCollection(cfg.Index.Collection),
		ingestion.WithTableName(cfg.Checkpoint.Table),
		ingestion.WithSearchLimit(cfg.Index.Limit),
		ingestion.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	if err := s.pipeline.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}

	s.logger.Info("docindex ready",
		"checkpoint", cfg.Checkpoint.Backend,
		"index", cfg.Index.Backend,
		"collection", cfg.Index.Collection,
		"band", s.gateway.Band().String())
	return s, nil
}

func openCheckpoint(cfg config.CheckpointConfig) (storage.CheckpointRepository, error) {
	switch cfg.Backend {
	case config.CheckpointBadger:
		return badger.OpenCheckpointRepository(cfg.Path, false)
	default:
		return sqlite.NewCheckpointRepository(cfg.Path)
	}
}

func openIndexBackend(cfg config.IndexConfig) (index.Backend, error) {
	switch cfg.Backend {
	case config.IndexQdrant:
		return qdrant.NewBackend(qdrant.Config{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantTLS,
		})
	default:
		if cfg.Path == "" {
			return chromem.NewMemoryBackend(), nil
		}
		return chromem.NewPersistentBackend(cfg.Path, false)
	}
}

func newExtractor(cfg config.OCRConfig, logger *slog.Logger) (extraction.Extractor, error) {
	var pdfOpts []extraction.PDFOption
	if cfg.Enabled {
		pdfOpts = append(pdfOpts, extraction.WithOCR(extraction.OCRConfig{
			Command:   cfg.Command,
			Languages: cfg.Languages,
			Jobs:      cfg.Jobs,
		}, extraction.ExecRunner{}))
	}
	return extraction.NewAdapter(
		extraction.WithLogger(logger),
		extraction.WithPDFExtractor(extraction.NewPDFExtractor(pdfOpts...)),
	)
}

// Ingest runs one file through the pipeline.
func (s *System) Ingest(ctx context.Context, path string) (*ingestion.Result, error) {
	return s.pipeline.Ingest(ctx, path)
}

// Query returns context strings for text, closest first.
func (s *System) Query(ctx context.Context, text string) ([]string, error) {
	return s.pipeline.Query(ctx, text)
}

// Pipeline returns the ingestion pipeline.
func (s *System) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Searcher returns the searcher bound to the configured collection.
func (s *System) Searcher() *search.Searcher {
	return s.pipeline.Searcher()
}

// Gateway returns the embedding and index gateway.
func (s *System) Gateway() *index.Gateway {
	return s.gateway
}

// Normalizer returns the file normalizer.
func (s *System) Normalizer() *normalize.Normalizer {
	return s.normalizer
}

// Registry returns the Prometheus registry holding docindex metrics.
func (s *System) Registry() *prometheus.Registry {
	return s.registry
}

// Config returns the configuration the system was opened with.
func (s *System) Config() *config.Config {
	return s.cfg
}

// NewReembedder returns a reembedder over the system's checkpoint and
// collection. rc may be nil for defaults.
func (s *System) NewReembedder(rc *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if rc == nil {
		rc = reembed.DefaultConfig()
	}
	rc.Collection = s.cfg.Index.Collection
	rc.TableName = s.cfg.Checkpoint.Table
	return reembed.NewReembedder(s.repo, s.gateway, rc, progress)
}

// Close releases every handle. It is safe to call on a partially opened System.
func (s *System) Close() error {
	var errs []error
	if s.gateway != nil {
		if err := s.gateway.Close(); err != nil {
			s.logger.Error("error closing index", "err", err)
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing embedding provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Error("error closing checkpoint", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
