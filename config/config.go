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

// Package config loads docindex settings from an optional YAML file,
// an optional .env file and DOCINDEX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/storage"
)

// Checkpoint backends.
const (
	CheckpointSQLite = "sqlite"
	CheckpointBadger = "badger"
)

// Index backends.
const (
	IndexChromem = "chromem"
	IndexQdrant  = "qdrant"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Index      IndexConfig      `koanf:"index"`
	Normalize  NormalizeConfig  `koanf:"normalize"`
	OCR        OCRConfig        `koanf:"ocr"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	UploadDir       string        `koanf:"upload_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CheckpointConfig selects where the chunk table is persisted.
type CheckpointConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
	Table   string `koanf:"table"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	Host       string `koanf:"host"`
	Model      string `koanf:"model"`
	APIKey     string `koanf:"api_key"`
	Dimensions int    `koanf:"dimensions"`
}

// IndexConfig configures the vector index and search band.
type IndexConfig struct {
	Backend     string  `koanf:"backend"`
	Collection  string  `koanf:"collection"`
	Path        string  `koanf:"path"`
	Radius      float32 `koanf:"radius"`
	RangeFilter float32 `koanf:"range_filter"`
	Limit       int     `koanf:"limit"`
	PoolSize    int     `koanf:"pool_size"`

	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantAPIKey string `koanf:"qdrant_api_key"`
	QdrantTLS    bool   `koanf:"qdrant_tls"`
}

// Band returns the configured similarity band.
func (c IndexConfig) Band() index.Band {
	return index.Band{Radius: c.Radius, RangeFilter: c.RangeFilter}
}

// NormalizeConfig configures file normalization.
type NormalizeConfig struct {
	DocumentsDir     string        `koanf:"documents_dir"`
	ConverterURL     string        `koanf:"converter_url"`
	ConverterTimeout time.Duration `koanf:"converter_timeout"`
}

// OCRConfig configures the optional OCR pass over PDFs.
type OCRConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Command   string `koanf:"command"`
	Languages string `koanf:"languages"`
	Jobs      int    `koanf:"jobs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			UploadDir:       "./uploads",
			ShutdownTimeout: 10 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Backend: CheckpointSQLite,
			Path:    "./data/checkpoint.db",
			Table:   storage.DefaultTableName,
		},
		Embedding: EmbeddingConfig{
			Host:       "https://api.openai.com/v1",
			Model:      "text-embedding-ada-002",
			Dimensions: 1536,
		},
		Index: IndexConfig{
			Backend:     IndexChromem,
			Collection:  "collection",
			Radius:      index.DefaultBand.Radius,
			RangeFilter: index.DefaultBand.RangeFilter,
			Limit:       index.DefaultLimit,
			QdrantHost:  "localhost",
			QdrantPort:  6334,
		},
		Normalize: NormalizeConfig{
			DocumentsDir:     "./uploads/documents",
			ConverterURL:     "http://localhost:2004/request",
			ConverterTimeout: 20 * time.Second,
		},
		OCR: OCRConfig{
			Command:   "ocrmypdf",
			Languages: "eng+spa",
			Jobs:      6,
		},
	}
}

// Validate checks the configuration for values the application cannot use.
func (c *Config) Validate() error {
	var errs []error

	switch c.Checkpoint.Backend {
	case CheckpointSQLite, CheckpointBadger:
	default:
		errs = append(errs, fmt.Errorf("checkpoint.backend must be %q or %q, got %q",
			CheckpointSQLite, CheckpointBadger, c.Checkpoint.Backend))
	}
	if c.Checkpoint.Path == "" {
		errs = append(errs, errors.New("checkpoint.path is required"))
	}
	if err := storage.ValidateTableName(c.Checkpoint.Table); err != nil {
		errs = append(errs, fmt.Errorf("checkpoint.table: %w", err))
	}

	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions))
	}

	switch c.Index.Backend {
	case IndexChromem, IndexQdrant:
	default:
		errs = append(errs, fmt.Errorf("index.backend must be %q or %q, got %q",
			IndexChromem, IndexQdrant, c.Index.Backend))
	}
	if c.Index.Collection == "" {
		errs = append(errs, errors.New("index.collection is required"))
	}
	if err := c.Index.Band().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("index: %w", err))
	}
	if c.Index.Limit <= 0 {
		errs = append(errs, fmt.Errorf("index.limit must be positive, got %d", c.Index.Limit))
	}

	if c.OCR.Enabled && c.OCR.Command == "" {
		errs = append(errs, errors.New("ocr.command is required when ocr is enabled"))
	}

	return errors.Join(errs...)
}
