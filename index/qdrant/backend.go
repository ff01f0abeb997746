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

// Package qdrant implements index.Backend against a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

// minPageSize bounds how many points one paged query fetches.
const minPageSize = 16

// Config selects the Qdrant server.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// client is the subset of *qdrant.Client the backend calls.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// Backend stores records as Qdrant points with numeric ids and a
// text/metadata payload.
type Backend struct {
	client client
	logger *slog.Logger
}

var _ index.Backend = (*Backend)(nil)

// NewBackend connects to the configured server. The gRPC connection is
// established lazily.
func NewBackend(cfg Config) (index.Backend, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
		GrpcOptions:            []grpc.DialOption{grpc.WithUserAgent("docindex")},
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return newBackend(c), nil
}

func newBackend(c client) *Backend {
	return &Backend{
		client: c,
		logger: slog.Default().With("component", "qdrant-backend"),
	}
}

// HasCollection reports whether the collection exists.
func (b *Backend) HasCollection(ctx context.Context, name string) (bool, error) {
	return b.client.CollectionExists(ctx, name)
}

// DropCollection deletes the collection if present.
func (b *Backend) DropCollection(ctx context.Context, name string) error {
	exists, err := b.client.CollectionExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	return b.client.DeleteCollection(ctx, name)
}

// CreateCollection creates a cosine collection of dim-length vectors.
func (b *Backend) CreateCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", index.ErrInvalidDimension, dim)
	}
	return b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Upsert writes all records in one request and waits for it to apply.
func (b *Backend) Upsert(ctx context.Context, name string, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points, err := toPoints(records)
	if err != nil {
		return err
	}
	_, err = b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return err
	}
	b.logger.Debug("upserted points", "collection", name, "count", len(points))
	return nil
}

// Search pages through points scoring above the band radius until limit
// in-band hits are found or the results run out.
func (b *Backend) Search(ctx context.Context, name string, vector []float32, params index.SearchParams) ([]core.SearchHit, error) {
	if params.Metric != "" && params.Metric != index.MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", params.Metric)
	}
	if params.Limit <= 0 {
		return []core.SearchHit{}, nil
	}

	pageSize := uint64(max(params.Limit*4, minPageSize))
	hits := make([]core.SearchHit, 0, params.Limit)
	var offset uint64

	for {
		points, err := b.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(vector...),
			ScoreThreshold: qdrant.PtrOf(params.Band.Radius),
			Limit:          qdrant.PtrOf(pageSize),
			Offset:         qdrant.PtrOf(offset),
			WithPayload:    qdrant.NewWithPayloadInclude(params.OutputFields...),
		})
		if err != nil {
			return nil, err
		}

		for _, p := range points {
			if !params.Band.Contains(p.GetScore()) {
				continue
			}
			hits = append(hits, fromScoredPoint(p))
			if len(hits) == params.Limit {
				return hits, nil
			}
		}

		if uint64(len(points)) < pageSize {
			return hits, nil
		}
		offset += pageSize
	}
}

// Close closes the gRPC connections.
func (b *Backend) Close() error {
	return b.client.Close()
}

func toPoints(records []core.VectorRecord) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		if r.ID < 0 {
			return nil, fmt.Errorf("record id %d cannot be a qdrant point id", r.ID)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: map[string]*qdrant.Value{
				index.FieldText:     qdrant.NewValueString(r.Text),
				index.FieldMetadata: qdrant.NewValueString(r.Metadata),
			},
		}
	}
	return points, nil
}

func fromScoredPoint(p *qdrant.ScoredPoint) core.SearchHit {
	payload := p.GetPayload()
	return core.SearchHit{
		ID:       int64(p.GetId().GetNum()),
		Text:     payload[index.FieldText].GetStringValue(),
		Metadata: payload[index.FieldMetadata].GetStringValue(),
		Score:    p.GetScore(),
	}
}
