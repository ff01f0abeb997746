package reembed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
)

// Upserter writes embedded records into a collection.
type Upserter interface {
	Upsert(ctx context.Context, name string, records []core.VectorRecord) error
}

var _ Upserter = (*index.Gateway)(nil)

// BatchProcessor embeds and upserts one batch of chunks.
type BatchProcessor struct {
	index          Upserter
	collection     string
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per batch
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(idx Upserter, collection string, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		index:          idx,
		collection:     collection,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process upserts chunks as one all-or-nothing call, retrying the whole
// batch on failure. Dimension mismatches are not retried.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]core.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = core.RecordFromChunk(c)
	}

	err := RetryWithBackoff(ctx, func() error {
		err := bp.index.Upsert(ctx, bp.collection, records)
		if errors.Is(err, index.ErrDimensionMismatch) {
			return Permanent(err)
		}
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to upsert chunks %d..%d: %w", chunks[0].ID, chunks[len(chunks)-1].ID, err)
	}
	return nil
}
