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

package index

import (
	"context"

	"github.com/poiesic/docindex/core"
)

const (
	// MetricCosine is the only similarity metric the gateway issues.
	MetricCosine = "COSINE"

	// FieldText and FieldMetadata are the record fields returned by searches.
	FieldText     = "text"
	FieldMetadata = "metadata"

	// DefaultLimit is the number of hits returned when the caller passes none.
	DefaultLimit = 3
)

// DefaultOutputFields are requested on every search.
var DefaultOutputFields = []string{FieldText, FieldMetadata}

// SearchParams is the backend query shape.
type SearchParams struct {
	Limit        int
	Metric       string
	Band         Band
	OutputFields []string
}

// Backend is a vector index holding named collections of VectorRecords
// with caller-supplied ids.
type Backend interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// DropCollection removes the named collection. Dropping a missing
	// collection is not an error.
	DropCollection(ctx context.Context, name string) error

	// CreateCollection creates an empty collection of dim-length vectors
	// keyed by explicit record ids.
	CreateCollection(ctx context.Context, name string, dim int) error

	// Upsert writes records, replacing any with the same id.
	Upsert(ctx context.Context, name string, records []core.VectorRecord) error

	// Search returns up to params.Limit records whose cosine similarity to
	// vector lies inside params.Band, closest first.
	Search(ctx context.Context, name string, vector []float32, params SearchParams) ([]core.SearchHit, error)

	// Close releases backend resources.
	Close() error
}
