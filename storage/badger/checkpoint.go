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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
// Each save runs in a single transaction, so a failed save leaves the
// previous snapshot intact.
type CheckpointRepository struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a repository over a shared backend.
// Closing the repository does not close the backend.
func NewCheckpointRepository(backend *Backend) storage.CheckpointRepository {
	return newCheckpointRepository(backend, false)
}

// OpenCheckpointRepository opens a backend at dirPath and returns a
// repository that closes it on Close.
func OpenCheckpointRepository(dirPath string, inMemory bool) (storage.CheckpointRepository, error) {
	backend, err := OpenBackend(dirPath, inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger checkpoint: %w", core.ErrCheckpointIO, err)
	}
	return newCheckpointRepository(backend, true), nil
}

func newCheckpointRepository(backend *Backend, owns bool) *CheckpointRepository {
	return &CheckpointRepository{
		backend:     backend,
		ownsBackend: owns,
		logger:      slog.Default().With("component", "badger-checkpoint"),
	}
}

// SaveTable replaces the named table with the rows of table.
func (r *CheckpointRepository) SaveTable(ctx context.Context, table *core.ChunkTable, name string) error {
	if err := storage.ValidateTableName(name); err != nil {
		return fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}
	if r.backend.IsClosed() {
		return fmt.Errorf("%w: %w", core.ErrCheckpointIO, storage.ErrStorageClosed)
	}

	rows := table.Rows()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deletePrefix(tx, makeTablePrefix(name)); err != nil {
			return err
		}
		for i, row := range rows {
			if err := tx.Set(makeRowKey(name, uint64(i)), storage.MarshalRow(row)); err != nil {
				return err
			}
		}
		if err := tx.Set(makeTableMetaKey(name), encodeCount(uint64(len(rows)))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		if errors.Is(err, badger.ErrTxnTooBig) {
			r.logger.Error("checkpoint table exceeds transaction limits", "table", name, "rows", len(rows))
		}
		return fmt.Errorf("%w: save table %q: %w", core.ErrCheckpointIO, name, err)
	}

	r.logger.Debug("saved checkpoint table", "table", name, "rows", len(rows))
	return nil
}

// LoadTable reads the named table and assigns ids 0..n-1 in row order.
func (r *CheckpointRepository) LoadTable(ctx context.Context, name string) (*core.ChunkTable, error) {
	if err := storage.ValidateTableName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCheckpointIO, err)
	}
	if r.backend.IsClosed() {
		return nil, fmt.Errorf("%w: %w", core.ErrCheckpointIO, storage.ErrStorageClosed)
	}

	var rows []core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTableMetaKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %q", storage.ErrNotFound, name)
			}
			return err
		}
		var expected uint64
		err = item.Value(func(val []byte) error {
			n, ok := decodeCount(val)
			if !ok {
				return storage.ErrTruncatedData
			}
			expected = n
			return nil
		})
		if err != nil {
			return err
		}

		rows = make([]core.Chunk, 0, expected)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRowPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var row core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				row, unmarshalErr = storage.UnmarshalRow(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}

		if uint64(len(rows)) != expected {
			return fmt.Errorf("%w: expected %d rows, found %d", storage.ErrTruncatedData, expected, len(rows))
		}
		return nil
	}, false)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load table %q: %w", core.ErrCheckpointIO, name, err)
	}

	return storage.RenumberRows(rows), nil
}

// Close closes the backend if this repository opened it.
func (r *CheckpointRepository) Close() error {
	if r.ownsBackend && !r.backend.IsClosed() {
		return r.backend.Close()
	}
	return nil
}

// deletePrefix removes every key under prefix within tx.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var stale [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		stale = append(stale, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range stale {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
