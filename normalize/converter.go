package normalize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultConverterURL is the LibreOffice conversion endpoint.
	DefaultConverterURL = "http://localhost:2004/request"

	// DefaultConverterTimeout bounds one conversion request.
	DefaultConverterTimeout = 20 * time.Second
)

// Converter turns the file at path into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, path string) ([]byte, error)
}

// HTTPConverter posts files to a LibreOffice-style conversion service as
// multipart form data (file + convert-to=pdf).
type HTTPConverter struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ Converter = (*HTTPConverter)(nil)

// NewHTTPConverter creates a converter for url. Zero values select the defaults.
func NewHTTPConverter(url string, timeout time.Duration) *HTTPConverter {
	if url == "" {
		url = DefaultConverterURL
	}
	if timeout <= 0 {
		timeout = DefaultConverterTimeout
	}
	return &HTTPConverter{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "http-converter"),
	}
}

// Convert uploads path and returns the response body.
func (c *HTTPConverter) Convert(ctx context.Context, path string) ([]byte, error) {
	body, contentType, err := multipartBody(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("conversion service returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading conversion response: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("conversion service returned an empty document")
	}

	c.logger.Debug("converted file", "path", path, "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

func multipartBody(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("convert-to", "pdf"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
