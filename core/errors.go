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

package core

import "errors"

// Domain errors shared by every stage of the ingestion and query paths.
var (
	// ErrExtraction indicates a file could not be decoded or parsed into elements.
	// Fatal for the file being ingested.
	ErrExtraction = errors.New("extraction failed")

	// ErrUnsupportedFiletype indicates the extracted elements carry a filetype
	// the chunk assembler has no grouping rule for. Not fatal.
	ErrUnsupportedFiletype = errors.New("unsupported filetype")

	// ErrEmbedding indicates the embedding backend failed or returned a
	// malformed vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex indicates a vector index operation failed.
	ErrIndex = errors.New("vector index operation failed")

	// ErrCheckpointIO indicates the chunk table could not be saved or loaded.
	ErrCheckpointIO = errors.New("checkpoint io failed")

	// ErrNormalization indicates a source file could not be placed or converted.
	ErrNormalization = errors.New("normalization failed")

	// ErrInvalidElement indicates an extraction element failed validation.
	ErrInvalidElement = errors.New("invalid extraction element")

	// ErrMissingFiletype indicates element metadata has no filetype.
	ErrMissingFiletype = errors.New("metadata is missing filetype")

	// ErrMissingFilename indicates element metadata has no filename.
	ErrMissingFilename = errors.New("metadata is missing filename")

	// ErrInvalidPageNumber indicates a paginated element has no positive page_number.
	ErrInvalidPageNumber = errors.New("page_number must be a positive integer")
)
