package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/docindex/core"
)

// PageReader returns the plain text of every page, in page order.
type PageReader interface {
	ReadPages(path string) ([]string, error)
}

// LedongthucReader reads PDF text with github.com/ledongthuc/pdf.
type LedongthucReader struct{}

var _ PageReader = LedongthucReader{}

// ReadPages extracts the text of each page. Pages without content yield "".
func (LedongthucReader) ReadPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[i-1] = text
	}
	return pages, nil
}

// PDFExtractor yields one element per page, optionally after adding an OCR
// text layer to the source file in place.
type PDFExtractor struct {
	reader PageReader
	runner CommandRunner
	ocr    OCRConfig
	logger *slog.Logger
}

var _ Extractor = (*PDFExtractor)(nil)

// PDFOption configures a PDFExtractor.
type PDFOption func(*PDFExtractor)

// WithPageReader replaces the PDF text reader.
func WithPageReader(r PageReader) PDFOption {
	return func(e *PDFExtractor) {
		e.reader = r
	}
}

// WithOCR enables OCR with cfg, run through runner.
func WithOCR(cfg OCRConfig, runner CommandRunner) PDFOption {
	return func(e *PDFExtractor) {
		e.ocr = cfg
		e.ocr.Enabled = true
		if runner != nil {
			e.runner = runner
		}
	}
}

// NewPDFExtractor creates a PDF extractor. OCR is off unless WithOCR is given.
func NewPDFExtractor(opts ...PDFOption) *PDFExtractor {
	e := &PDFExtractor{
		reader: LedongthucReader{},
		runner: ExecRunner{},
		ocr:    DefaultOCRConfig(),
		logger: slog.Default().With("component", "pdf-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one element per page with 1-based page numbers.
// With OCR enabled the source file is replaced by its searchable version.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]core.Element, error) {
	if e.ocr.Enabled {
		if err := e.applyOCR(ctx, path); err != nil {
			return nil, err
		}
	}

	pages, err := e.reader.ReadPages(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrExtraction, path, err)
	}

	filename := filepath.Base(path)
	elements := make([]core.Element, len(pages))
	for i, text := range pages {
		elements[i] = core.Element{
			Text: text,
			Metadata: core.Metadata{
				core.MetaFiletype:   core.FiletypePDF,
				core.MetaFilename:   filename,
				core.MetaPageNumber: i + 1,
			},
		}
	}
	e.logger.Debug("extracted pdf pages", "path", path, "pages", len(elements))
	return elements, nil
}

func (e *PDFExtractor) applyOCR(ctx context.Context, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ocr-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: ocr temp file: %w", core.ErrExtraction, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := e.runner.Run(ctx, e.ocr.Command, e.ocr.Args(path, tmpPath)...); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ocr %s: %w", core.ErrExtraction, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s with ocr output: %w", core.ErrExtraction, path, err)
	}
	e.logger.Info("applied ocr", "path", path, "languages", e.ocr.Languages)
	return nil
}
