package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docindex/core"
)

// DefaultDocumentsDir receives normalized files.
const DefaultDocumentsDir = "./uploads/documents"

// Normalizer moves or converts files into the documents directory.
type Normalizer struct {
	documentsDir string
	converter    Converter
	logger       *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger.With("component", "normalizer")
		return nil
	}
}

// WithConverter sets the service that turns office files into PDF.
// Default is an HTTPConverter for DefaultConverterURL.
func WithConverter(converter Converter) Option {
	return func(n *Normalizer) error {
		if converter == nil {
			return errors.New("converter cannot be nil")
		}
		n.converter = converter
		return nil
	}
}

// NewNormalizer creates a normalizer writing into documentsDir.
func NewNormalizer(documentsDir string, opts ...Option) (*Normalizer, error) {
	if documentsDir == "" {
		documentsDir = DefaultDocumentsDir
	}
	n := &Normalizer{
		documentsDir: documentsDir,
		converter:    NewHTTPConverter("", 0),
		logger:       slog.Default().With("component", "normalizer"),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// DocumentsDir returns the output directory.
func (n *Normalizer) DocumentsDir() string {
	return n.documentsDir
}

// Normalize returns the path of the normalized copy of path.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, error) {
	if err := os.MkdirAll(n.documentsDir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", core.ErrNormalization, n.documentsDir, err)
	}

	strategy := Classify(path)
	n.logger.Debug("normalizing file", "path", path, "strategy", strategy)

	switch strategy {
	case AcceptedAsIs:
		dst := filepath.Join(n.documentsDir, filepath.Base(path))
		if err := moveFile(path, dst); err != nil {
			return "", fmt.Errorf("%w: moving %s: %w", core.ErrNormalization, path, err)
		}
		return dst, nil

	default:
		data, err := n.converter.Convert(ctx, path)
		if err != nil {
			return "", fmt.Errorf("%w: converting %s: %w", core.ErrNormalization, path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		dst := filepath.Join(n.documentsDir, stem+".pdf")
		if err := writeFileAtomic(dst, data); err != nil {
			return "", fmt.Errorf("%w: writing %s: %w", core.ErrNormalization, dst, err)
		}
		n.logger.Info("converted file to pdf", "src", path, "dst", dst)
		// The source leaves the upload area like an accepted file does.
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			n.logger.Warn("failed to remove converted source", "path", path, "err", err)
		}
		return dst, nil
	}
}

func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Rename fails across filesystems
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".move-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Remove(src)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".convert-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// PurgeFiles removes every regular file below dir, keeping the directories.
func PurgeFiles(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type().IsRegular() {
			return os.Remove(path)
		}
		return nil
	})
}
