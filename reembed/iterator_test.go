package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTable(n int) *core.ChunkTable {
	rows := make([]core.Chunk, n)
	for i := range rows {
		rows[i] = core.Chunk{
			ID:       int64(i),
			Metadata: fmt.Sprintf(`{"filename":"doc.pdf","page_number":%d}`, i+1),
			Text:     fmt.Sprintf("chunk %d", i),
		}
	}
	return core.NewChunkTable(rows...)
}

func TestTableIterator_Batches(t *testing.T) {
	var sizes []int
	var ids []int64
	err := NewTableIterator(makeTable(7), 3).ForEach(context.Background(), func(chunks []core.Chunk) error {
		sizes = append(sizes, len(chunks))
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, ids, "rows are visited in order")
}

func TestTableIterator_EmptyTable(t *testing.T) {
	called := false
	err := NewTableIterator(core.NewChunkTable(), 10).ForEach(context.Background(), func([]core.Chunk) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestTableIterator_DefaultBatchSize(t *testing.T) {
	it := NewTableIterator(makeTable(1), 0)
	assert.Equal(t, DefaultBatchSize, it.batchSize)
}

func TestTableIterator_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := NewTableIterator(makeTable(10), 2).ForEach(context.Background(), func([]core.Chunk) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestTableIterator_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewTableIterator(makeTable(10), 2).ForEach(ctx, func([]core.Chunk) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
