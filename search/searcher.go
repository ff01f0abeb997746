package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/metrics"
)

// Index is the part of index.Gateway a Searcher needs.
type Index interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	SearchVector(ctx context.Context, name string, vec []float32, limit int) ([]core.SearchHit, error)
}

var _ Index = (*index.Gateway)(nil)

// Searcher runs similarity queries against one collection.
type Searcher struct {
	index      Index
	collection string
	limit      int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithLimit sets the default number of hits returned when the caller passes
// a non-positive limit.
func WithLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit > 0 {
			s.limit = limit
		}
		return nil
	}
}

// WithMetrics records search counts and hit sizes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) error {
		s.metrics = m
		return nil
	}
}

// NewSearcher creates a new searcher over the named collection.
func NewSearcher(idx Index, collection string, opts ...Option) (*Searcher, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if collection == "" {
		return nil, ErrCollectionRequired
	}

	s := &Searcher{
		index:      idx,
		collection: collection,
		limit:      index.DefaultLimit,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher", "collection", collection)

	return s, nil
}

// Search returns up to limit chunks inside the similarity band, closest first.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	return s.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, monitor SearchMonitor) (hits []core.SearchHit, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if limit <= 0 {
		limit = s.limit
	}

	monitor.Start(query)
	defer func() {
		s.metrics.RecordSearch(len(hits), err)
		monitor.Finish(hits, err)
	}()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := s.index.Embed(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterEmbed(vec)

	hits, err = s.index.SearchVector(ctx, s.collection, vec, limit)
	if err != nil {
		s.logger.Error("error querying collection", "err", err)
		return nil, err
	}
	monitor.AfterSearch(hits)

	s.logger.Debug("search complete", "hits", len(hits), "limit", limit)
	return hits, nil
}

// Context returns the text of every hit for query, in rank order.
func (s *Searcher) Context(ctx context.Context, query string) ([]string, error) {
	hits, err := s.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text
	}
	return texts, nil
}
