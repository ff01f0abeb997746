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

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/docindex/core"
)

// MarshalRow serializes the persisted columns of a chunk (metadata, text).
// The id is not part of the persisted form.
func MarshalRow(c core.Chunk) []byte {
	buf := make([]byte, ord.String.Size(c.Metadata)+ord.String.Size(c.Text))
	n := ord.String.Marshal(c.Metadata, buf)
	ord.String.Marshal(c.Text, buf[n:])
	return buf
}

// UnmarshalRow deserializes a row written by MarshalRow. The returned chunk
// has a zero id.
func UnmarshalRow(data []byte) (core.Chunk, error) {
	if len(data) == 0 {
		return core.Chunk{}, ErrTruncatedData
	}
	metadata, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return core.Chunk{}, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	text, m, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return core.Chunk{}, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}
	if n+m != len(data) {
		return core.Chunk{}, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n-m)
	}
	return core.Chunk{Metadata: metadata, Text: text}, nil
}
