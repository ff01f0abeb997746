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

import (
	"fmt"
	"unicode/utf8"
)

// ValidateElement validates an extraction element according to domain rules.
//
// Validation rules:
//   - Metadata must carry a non-empty filetype
//   - Metadata must carry a non-empty filename
//   - Paginated elements must carry a positive page_number
//   - Text must be valid UTF-8 (it may be empty)
func ValidateElement(e Element) error {
	if e.Metadata.Filetype() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidElement, ErrMissingFiletype)
	}
	if e.Metadata.Filename() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidElement, ErrMissingFilename)
	}
	if e.Metadata.IsPaginated() {
		if _, ok := e.Metadata.PageNumber(); !ok {
			return fmt.Errorf("%w: %w: %v", ErrInvalidElement, ErrInvalidPageNumber, e.Metadata[MetaPageNumber])
		}
	}
	if !utf8.ValidString(e.Text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidElement)
	}
	return nil
}

// ValidateElements validates every element and reports the first failure
// with its position.
func ValidateElements(elements []Element) error {
	for i, e := range elements {
		if err := ValidateElement(e); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}
