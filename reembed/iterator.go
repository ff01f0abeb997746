package reembed

import (
	"context"

	"github.com/poiesic/docindex/core"
)

// DefaultBatchSize is the default number of chunks per batch.
const DefaultBatchSize = 100

// TableIterator walks a chunk table in fixed-size batches, in row order.
type TableIterator struct {
	table     *core.ChunkTable
	batchSize int
}

// NewTableIterator creates an iterator over table.
// batchSize <= 0 selects DefaultBatchSize.
func NewTableIterator(table *core.ChunkTable, batchSize int) *TableIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &TableIterator{table: table, batchSize: batchSize}
}

// ForEach calls fn for each batch. Iteration stops on the first error from
// fn or when ctx is cancelled between batches.
func (it *TableIterator) ForEach(ctx context.Context, fn func([]core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := it.table.Len()
	for start := 0; start < n; start += it.batchSize {
		end := min(start+it.batchSize, n)
		if err := fn(it.table.Slice(start, end)); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
