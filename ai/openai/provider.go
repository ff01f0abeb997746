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

package openai

import (
	"log/slog"

	"github.com/poiesic/docindex/ai"
)

// Provider owns the embedder built from one ai.Config.
type Provider struct {
	embedder *Embedder
	host     string
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider returns a provider for config's embedding host and model.
func NewProvider(config *ai.Config) (*Provider, error) {
	embedder, err := NewEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		host:     config.EmbeddingHost,
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close holds no connections; the HTTP client is shared.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider", "host", p.host, "model", p.embedder.Model())
	return nil
}
