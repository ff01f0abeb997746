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

// Package storage provides the deduplicating chunk store for docindex.
//
// Merge folds candidate chunks into a core.ChunkTable keyed by content
// identity. CheckpointRepository persists the table as a full-replace
// snapshot: every save rewrites the whole table and every load assigns fresh
// 0-based ids, so (metadata, text) is the only durable identity of a row.
//
// # Constructor Return Type Pattern
//
// Backend packages return the storage.CheckpointRepository interface from
// their public constructors:
//
//	repo, err := sqlite.NewCheckpointRepository("./data/checkpoint.db")
//	repo := badger.NewCheckpointRepository(backend)
//
// # Backends
//
//   - storage/sqlite: one SQLite file per dataset, one table per name with
//     columns (metadata TEXT, text TEXT)
//   - storage/badger: rows stored under a per-table key prefix in BadgerDB
//
// # Usage
//
//	table, err := repo.LoadTable(ctx, storage.DefaultTableName)
//	if errors.Is(err, storage.ErrNotFound) {
//	    table = core.NewChunkTable()
//	}
//	result := storage.Merge(table, candidates)
//	if err := repo.SaveTable(ctx, result.Table, storage.DefaultTableName); err != nil {
//	    // the durable checkpoint is now stale relative to result.Table
//	}
//
// # Thread Safety
//
// Repositories are safe for concurrent use. Load-merge-save cycles are not
// atomic and must be serialized by the caller.
package storage
