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

package storage

import "github.com/poiesic/docindex/core"

// MergeResult is the outcome of merging candidates into a table.
type MergeResult struct {
	// Table is the merged table. The input table is never modified.
	Table *core.ChunkTable

	// Added holds the accepted candidates in their original relative order.
	Added []core.Chunk

	// Rejected counts candidates whose identity key was already present.
	Rejected int
}

// Merge appends candidates to table, skipping any candidate whose
// (metadata, text) key already exists in table or earlier in the batch.
// Existing rows keep their order and new rows are only ever appended.
//
// An empty table takes the candidates unchanged, with no dedup check and no
// renumbering.
func Merge(table *core.ChunkTable, candidates []core.Chunk) MergeResult {
	if table.IsEmpty() {
		added := make([]core.Chunk, len(candidates))
		copy(added, candidates)
		return MergeResult{
			Table: core.NewChunkTable(candidates...),
			Added: added,
		}
	}

	merged := table.Clone()
	result := MergeResult{Table: merged}
	for _, c := range candidates {
		if merged.Contains(c.Key()) {
			result.Rejected++
			continue
		}
		merged.Append(c)
		result.Added = append(result.Added, c)
	}
	return result
}
