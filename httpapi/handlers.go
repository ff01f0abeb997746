package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/normalize"
)

const helloBody = "<h1>Hello, World!</h1>"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UploadResponse is returned by a successful /upload.
type UploadResponse struct {
	Message            string `json:"message"`
	RunID              string `json:"run_id"`
	ChunksAdded        int    `json:"chunks_added"`
	ChunksIndexed      int    `json:"chunks_indexed"`
	DuplicatesRejected int    `json:"duplicates_rejected"`
}

// ContextEntry is one search hit. Metadata is the chunk's JSON string.
type ContextEntry struct {
	Text     string  `json:"text"`
	Metadata string  `json:"metadata"`
	Score    float32 `json:"score"`
}

// SearchResponse is returned by /search, closest hit first.
type SearchResponse struct {
	Context []ContextEntry `json:"context"`
}

func (s *Server) handleHello(c echo.Context) error {
	return c.HTML(http.StatusOK, helloBody)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleUpload(c echo.Context) error {
	// A part with an empty filename is parsed as a plain value, so it lands here too.
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No file has been sent: 'file'"})
	}

	name := SanitizeFilename(fh.Filename)
	if !normalize.IsAllowed(name) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid file format: 'file'"})
	}

	path, err := s.saveUpload(fh, name)
	if err != nil {
		s.logger.Error("failed to save upload", "filename", name, "err", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Could not store file: 'file'"})
	}

	res, err := s.ingester.Ingest(c.Request().Context(), path)
	switch {
	case errors.Is(err, core.ErrUnsupportedFiletype):
		return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "Unsupported file type: 'file'"})
	case errors.Is(err, core.ErrNormalization), errors.Is(err, core.ErrExtraction):
		s.logger.Warn("upload could not be read", "filename", name, "err", err)
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case err != nil:
		s.logger.Error("ingestion failed", "filename", name, "err", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Message:            "File uploaded successfully",
		RunID:              res.RunID,
		ChunksAdded:        res.ChunksAdded,
		ChunksIndexed:      res.ChunksIndexed,
		DuplicatesRejected: res.DuplicatesRejected,
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.config.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Server) handleSearch(c echo.Context) error {
	query := strings.TrimSpace(c.FormValue("text_query"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No query has been sent: 'text_query'"})
	}

	hits, err := s.searcher.Search(c.Request().Context(), query, 0)
	if err != nil {
		s.logger.Error("search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	resp := SearchResponse{Context: make([]ContextEntry, len(hits))}
	for i, h := range hits {
		resp.Context[i] = ContextEntry{Text: h.Text, Metadata: h.Metadata, Score: h.Score}
	}
	return c.JSON(http.StatusOK, resp)
}

// SanitizeFilename reduces name to a safe base name. Directory components
// are dropped, whitespace becomes '_' and anything other than letters,
// digits, '.', '-' and '_' is removed. Leading dots are stripped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "._")
}
