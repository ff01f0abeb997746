package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/poiesic/docindex/core"
)

// DefaultTableName is the checkpoint table used when none is configured.
const DefaultTableName = "ocr_data"

// CheckpointRepository persists the chunk table as a full-replace snapshot.
// Implementations must be safe for concurrent use, but callers are still
// expected to serialize load-merge-save cycles: SaveTable replaces the whole
// table, so two interleaved cycles lose updates.
type CheckpointRepository interface {
	// SaveTable writes every row of table under name, replacing any existing
	// table of that name. The id column is not persisted. Either the whole
	// table is written or the previous snapshot is left untouched.
	SaveTable(ctx context.Context, table *core.ChunkTable, name string) error

	// LoadTable reads the named table back in on-disk row order and assigns
	// fresh contiguous ids starting at 0.
	// Returns ErrNotFound if the table has never been saved.
	LoadTable(ctx context.Context, name string) (*core.ChunkTable, error)

	// Close releases resources held by the repository.
	Close() error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects names that are not plain identifiers.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// RenumberRows assigns ids 0..n-1 in row order, as every load must.
func RenumberRows(rows []core.Chunk) *core.ChunkTable {
	for i := range rows {
		rows[i].ID = int64(i)
	}
	return core.NewChunkTable(rows...)
}
