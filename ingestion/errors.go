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

package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrIndexRequired is returned when an index is not provided.
	ErrIndexRequired = errors.New("index required")

	// ErrNotOpen is returned when the pipeline is used before Open.
	ErrNotOpen = errors.New("pipeline not open")
)

// PipelineError reports the stage at which a file's run failed.
type PipelineError struct {
	Path  string
	Stage State
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("ingest %s: %s stage failed: %v", e.Path, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
