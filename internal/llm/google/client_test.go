package google

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsNameAndExposesModels(t *testing.T) {
	t.Parallel()
	c, err := New(context.Background(), Config{APIKey: "test-key", Models: []string{"gemini-embedding-001"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google", c.Name())
	assert.ElementsMatch(t, []string{"gemini-embedding-001"}, c.Models())
}

func TestNew_CustomNameOverridesDefault(t *testing.T) {
	t.Parallel()
	c, err := New(context.Background(), Config{Name: "gemini-eu", APIKey: "test-key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-eu", c.Name())
}

func TestClient_TokenCount(t *testing.T) {
	t.Parallel()
	c, err := New(context.Background(), Config{APIKey: "test-key"}, nil)
	require.NoError(t, err)
	n, err := c.TokenCount("gemini-embedding-001", "hello world")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
