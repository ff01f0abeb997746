package chromem

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayOverChromem(t *testing.T) {
	vectors := map[string][]float32{
		"query":      unitAt(1),
		"alpha page": unitAt(0.9),
		"beta page":  unitAt(0.45),
	}
	embedder := mock.NewMockEmbedderWithDimensions(2)
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		return v, nil
	}

	g, err := index.NewGateway(NewMemoryBackend(), embedder, 2)
	require.NoError(t, err)
	defer g.Close()
	ctx := context.Background()

	require.NoError(t, g.CreateCollection(ctx, "docs"))
	require.NoError(t, g.Upsert(ctx, "docs", []core.VectorRecord{
		{ID: 0, Text: "alpha page", Metadata: `{"page_number":1}`},
		{ID: 1, Text: "beta page", Metadata: `{"page_number":2}`},
	}))

	hits, err := g.Search(ctx, "docs", "query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, "beta page", hits[0].Text)
	assert.Equal(t, `{"page_number":2}`, hits[0].Metadata)
}
