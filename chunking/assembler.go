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

// Package chunking turns extraction elements into candidate chunk rows.
//
// The grouping rule is chosen by the filetype of the first element:
//   - application/pdf: one chunk per page, in order of first appearance
//   - text/*: a single chunk carrying the element's full metadata
//   - anything else: no chunks, reported as core.ErrUnsupportedFiletype
//
// Candidate ids are provisional. They are offset from the id base of the
// table the candidates will be merged into and may be discarded by the merge.
package chunking

import (
	"fmt"
	"strings"

	"github.com/poiesic/docindex/core"
)

const textSeparator = " "

// Assemble groups elements into candidate chunks.
// idBase is the current table size (see core.ChunkTable.IDBase); the chunk at
// position i receives id idBase+1+i. Empty input yields no chunks and no error.
func Assemble(elements []core.Element, idBase int64) ([]core.Chunk, error) {
	if len(elements) == 0 {
		return nil, nil
	}

	first := elements[0].Metadata
	switch {
	case first.IsPaginated():
		return assemblePaginated(elements, idBase)
	case first.IsFlat():
		return assembleFlat(elements, idBase)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFiletype, first.Filetype())
	}
}

type page struct {
	number   int
	filename string
	texts    []string
}

func assemblePaginated(elements []core.Element, idBase int64) ([]core.Chunk, error) {
	if err := core.ValidateElements(elements); err != nil {
		return nil, err
	}

	var order []*page
	byNumber := make(map[int]*page)
	for _, e := range elements {
		n, _ := e.Metadata.PageNumber()
		p, ok := byNumber[n]
		if !ok {
			p = &page{number: n, filename: e.Metadata.Filename()}
			byNumber[n] = p
			order = append(order, p)
		}
		p.texts = append(p.texts, e.Text)
	}

	chunks := make([]core.Chunk, 0, len(order))
	for i, p := range order {
		meta := core.Metadata{
			core.MetaPageNumber: p.number,
			core.MetaFilename:   p.filename,
		}
		serialized, err := meta.Serialize()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, core.Chunk{
			ID:       idBase + 1 + int64(i),
			Metadata: serialized,
			Text:     strings.Join(p.texts, textSeparator),
		})
	}
	return chunks, nil
}

func assembleFlat(elements []core.Element, idBase int64) ([]core.Chunk, error) {
	if err := core.ValidateElements(elements); err != nil {
		return nil, err
	}

	serialized, err := elements[0].Metadata.Serialize()
	if err != nil {
		return nil, err
	}

	text := elements[0].Text
	if len(elements) > 1 {
		texts := make([]string, len(elements))
		for i, e := range elements {
			texts[i] = e.Text
		}
		text = strings.Join(texts, textSeparator)
	}

	return []core.Chunk{{
		ID:       idBase + 1,
		Metadata: serialized,
		Text:     text,
	}}, nil
}
