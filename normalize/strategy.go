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

// Package normalize brings uploaded files into a form the extractors can
// read: plain text and PDF files are accepted as-is, everything else is
// converted to PDF by an external conversion service.
package normalize

import (
	"path/filepath"
	"slices"
	"strings"
)

// Strategy says how a file is brought into the documents directory.
type Strategy int

const (
	// AcceptedAsIs files are moved unchanged.
	AcceptedAsIs Strategy = iota
	// RequiresConversion files are converted to PDF first.
	RequiresConversion
)

func (s Strategy) String() string {
	switch s {
	case AcceptedAsIs:
		return "accepted-as-is"
	case RequiresConversion:
		return "requires-conversion"
	default:
		return "unknown"
	}
}

var acceptedExtensions = []string{"txt", "html", "md", "java", "py", "c", "cpp", "js", "pdf"}

var convertibleExtensions = []string{"png", "jpg", "jpeg", "ppt", "pptx", "doc", "docx"}

// Extension returns the lowercased extension of name without the dot,
// or "" when name has none.
func Extension(name string) string {
	ext := filepath.Ext(name)
	if len(ext) <= 1 {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Classify picks the strategy for path from its extension.
func Classify(path string) Strategy {
	if slices.Contains(acceptedExtensions, Extension(path)) {
		return AcceptedAsIs
	}
	return RequiresConversion
}

// IsAllowed reports whether name may be uploaded at all.
func IsAllowed(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	return slices.Contains(acceptedExtensions, ext) || slices.Contains(convertibleExtensions, ext)
}
