package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

func TestNewClient_DisabledReturnsNilWithoutError(t *testing.T) {
	t.Parallel()
	c, err := NewClient(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNilClient_MethodsDegradeGracefully(t *testing.T) {
	t.Parallel()
	var c *Client
	ctx := context.Background()

	_, ok := c.GetQueryEmbedding(ctx, "model", "query")
	assert.False(t, ok)

	assert.NotPanics(t, func() { c.SetQueryEmbedding(ctx, "model", "query", []float32{1, 2, 3}) })
	assert.NoError(t, c.Close())
}

func testRedisClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c, err := NewClient(config.RedisConfig{Enabled: true, Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_QueryEmbeddingRoundTrip(t *testing.T) {
	c := testRedisClient(t)
	ctx := context.Background()

	_, ok := c.GetQueryEmbedding(ctx, "text-embedding-3-small", "what is rescission")
	assert.False(t, ok)

	vector := []float32{0.1, 0.2, 0.3}
	c.SetQueryEmbedding(ctx, "text-embedding-3-small", "what is rescission", vector)

	got, ok := c.GetQueryEmbedding(ctx, "text-embedding-3-small", "what is rescission")
	require.True(t, ok)
	assert.Equal(t, vector, got)
}

func TestClient_PublishAndLoadRegistry(t *testing.T) {
	c := testRedisClient(t)
	ctx := context.Background()

	mapping := map[string]string{"text-embedding-3-small": "openai", "gemini-embedding-001": "google"}
	require.NoError(t, c.PublishRegistry(ctx, mapping))

	loaded, err := c.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, mapping, loaded)
}
