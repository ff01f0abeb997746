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

// Package httpapi exposes document upload and context search over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultAddr is used when no listen address is configured.
	DefaultAddr = ":5000"
	// DefaultUploadDir receives uploaded files before normalization.
	DefaultUploadDir = "./uploads"
	// DefaultBodyLimit caps upload request bodies.
	DefaultBodyLimit = "64M"
)

// Ingester runs one saved upload through ingestion.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*ingestion.Result, error)
}

// Searcher answers context queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]core.SearchHit, error)
}

// Config holds server configuration.
type Config struct {
	Addr      string
	UploadDir string
}

// Server serves the upload and search endpoints.
type Server struct {
	echo     *echo.Echo
	ingester Ingester
	searcher Searcher
	gatherer prometheus.Gatherer
	config   *Config
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "http")
		return nil
	}
}

// WithGatherer exposes g on /metrics. Without it the endpoint is not
// registered.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) error {
		if g == nil {
			return errors.New("gatherer cannot be nil")
		}
		s.gatherer = g
		return nil
	}
}

// NewServer creates a server. A nil cfg uses DefaultAddr and DefaultUploadDir.
func NewServer(ingester Ingester, searcher Searcher, cfg *Config, opts ...Option) (*Server, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}

	s := &Server{
		ingester: ingester,
		searcher: searcher,
		config:   cfg,
		logger:   slog.Default().With("component", "http"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(DefaultBodyLimit))
	e.Use(s.requestLogger())

	s.echo = e
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/hello", s.handleHello)
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/upload", s.handleUpload)
	s.echo.POST("/search", s.handleSearch)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			s.logger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	}
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Start listens on the configured address. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.config.Addr, "upload_dir", s.config.UploadDir)
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
