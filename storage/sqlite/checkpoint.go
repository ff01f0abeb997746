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

// Package sqlite stores checkpoint tables in a single SQLite file.
//
// Each table has exactly two columns, metadata (JSON text) and text. Row
// order is rowid order; ids are never stored.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// DefaultPath is the checkpoint file used when none is configured.
const DefaultPath = "./data/checkpoint.db"

// CheckpointRepository implements storage.CheckpointRepository on SQLite.
type CheckpointRepository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository opens (or creates) the checkpoint file at path.
// The parent directory is created if needed.
func NewCheckpointRepository(path string) (storage.CheckpointRepository, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating checkpoint directory: %w", core.ErrCheckpointIO, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening checkpoint: %w", core.ErrCheckpointIO, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening checkpoint: %w", core.ErrCheckpointIO, err)
	}

	return &CheckpointRepository{
		db:     db,
		path:   path,
		logger: slog.Default().With("component", "sqlite-checkpoint", "path", path),
	}, nil
}

// Path returns the checkpoint file path.
func (r *CheckpointRepository) Path() string {
	return r.path
}

// SaveTable drops and recreates the named table inside one transaction and
// inserts every row in order. On failure the previous table is left intact.
func (r *CheckpointRepository) SaveTable(ctx context.Context, table *core.ChunkTable, name string) error {
	if err := storage.ValidateTableName(name); err != nil {
		return fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}

	rows := table.Rows()
	if err := r.replaceTable(ctx, name, rows); err != nil {
		return fmt.Errorf("%w: save table %q: %w", core.ErrCheckpointIO, name, err)
	}

	r.logger.Debug("saved checkpoint table", "table", name, "rows", len(rows))
	return nil
}

func (r *CheckpointRepository) replaceTable(ctx context.Context, name string, rows []core.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ident := quoteIdent(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+ident+" (metadata TEXT NOT NULL, text TEXT NOT NULL)"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+ident+" (metadata, text) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Metadata, row.Text); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadTable reads the named table in rowid order and assigns ids 0..n-1.
func (r *CheckpointRepository) LoadTable(ctx context.Context, name string) (*core.ChunkTable, error) {
	if err := storage.ValidateTableName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}

	exists, err := r.tableExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: load table %q: %w", core.ErrCheckpointIO, name, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, name)
	}

	rows, err := r.readRows(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: load table %q: %w", core.ErrCheckpointIO, name, err)
	}
	return storage.RenumberRows(rows), nil
}

func (r *CheckpointRepository) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *CheckpointRepository) readRows(ctx context.Context, name string) ([]core.Chunk, error) {
	result, err := r.db.QueryContext(ctx, "SELECT metadata, text FROM "+quoteIdent(name)+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer result.Close()

	var rows []core.Chunk
	for result.Next() {
		var metadata, text sql.NullString
		if err := result.Scan(&metadata, &text); err != nil {
			return nil, err
		}
		rows = append(rows, core.Chunk{Metadata: metadata.String, Text: text.String})
	}
	return rows, result.Err()
}

// Close closes the database connection.
func (r *CheckpointRepository) Close() error {
	return r.db.Close()
}

// quoteIdent quotes a table name already checked by storage.ValidateTableName.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
