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

// Package extraction turns a normalized file into a list of elements, each
// carrying text plus metadata (filetype, filename and, for PDFs, page_number).
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/docindex/core"
)

// Extractor reads one file into elements.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]core.Element, error)
}

// Adapter dispatches on the file extension: .pdf files go to the PDF
// extractor, everything else to the plain-text extractor.
type Adapter struct {
	pdf    Extractor
	text   Extractor
	logger *slog.Logger
}

var _ Extractor = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger.With("component", "extraction")
		return nil
	}
}

// WithPDFExtractor sets the extractor used for .pdf files.
// Default is a PDFExtractor with OCR disabled.
func WithPDFExtractor(e Extractor) Option {
	return func(a *Adapter) error {
		if e == nil {
			return fmt.Errorf("pdf extractor cannot be nil")
		}
		a.pdf = e
		return nil
	}
}

// WithTextExtractor sets the extractor used for .txt files.
// Default is TextExtractor.
func WithTextExtractor(e Extractor) Option {
	return func(a *Adapter) error {
		if e == nil {
			return fmt.Errorf("text extractor cannot be nil")
		}
		a.text = e
		return nil
	}
}

// NewAdapter creates an adapter with the default extractors.
func NewAdapter(opts ...Option) (*Adapter, error) {
	a := &Adapter{
		pdf:    NewPDFExtractor(),
		text:   TextExtractor{},
		logger: slog.Default().With("component", "extraction"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Extract runs the extractor matching path's extension.
func (a *Adapter) Extract(ctx context.Context, path string) ([]core.Element, error) {
	ext := strings.ToLower(filepath.Ext(path))
	a.logger.Debug("extracting file", "path", path, "ext", ext)
	if ext == ".pdf" {
		return a.pdf.Extract(ctx, path)
	}
	return a.text.Extract(ctx, path)
}
