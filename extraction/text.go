package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docindex/core"
)

// TextExtractor reads a whole file as one UTF-8 element.
type TextExtractor struct{}

var _ Extractor = TextExtractor{}

// Extract returns a single element with filetype text/<ext>.
func (TextExtractor) Extract(ctx context.Context, path string) ([]core.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrExtraction, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", core.ErrExtraction, path)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return []core.Element{{
		Text: string(data),
		Metadata: core.Metadata{
			core.MetaFiletype: core.FiletypeTextPrefix + "/" + ext,
			core.MetaFilename: filepath.Base(path),
		},
	}}, nil
}
