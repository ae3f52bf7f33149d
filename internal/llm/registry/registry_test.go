package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
)

type fakeProvider struct {
	name   string
	models []string
}

func (f *fakeProvider) Name() string                    { return f.name }
func (f *fakeProvider) Capabilities() []llm.Capability   { return []llm.Capability{llm.CapabilityEmbedding} }
func (f *fakeProvider) Models() []string                 { return f.models }
func (f *fakeProvider) Embeddings(context.Context, string, []string, llm.EmbeddingOperation) ([][]float32, error) {
	return nil, nil
}
func (f *fakeProvider) Completion(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, nil
}
func (f *fakeProvider) TokenCount(_, text string) (int, error) { return len(text), nil }

func TestCache_ResolveExactAndAlias(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "google", models: []string{"models/text-embedding-004"}}
	c := New()
	c.Refresh([]llm.Provider{p})

	exact, err := c.Resolve("models/text-embedding-004")
	require.NoError(t, err)
	assert.Equal(t, "google", exact.Name())

	alias, err := c.Resolve("text-embedding-004")
	require.NoError(t, err)
	assert.Equal(t, "google", alias.Name())

	caseInsensitive, err := c.Resolve("TEXT-EMBEDDING-004")
	require.NoError(t, err)
	assert.Equal(t, "google", caseInsensitive.Name())
}

func TestCache_ResolveSubstringFallback(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{name: "openai", models: []string{"text-embedding-3-small"}}
	c := New()
	c.Refresh([]llm.Provider{p})

	prov, err := c.Resolve("embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, "openai", prov.Name())
}

func TestCache_ResolveNotFound(t *testing.T) {
	t.Parallel()
	c := New()
	c.Refresh(nil)
	_, err := c.Resolve("nonexistent-model")
	assert.ErrorIs(t, err, llm.ErrNoProviderForModel)
}

func TestCache_RefreshReplacesPreviousState(t *testing.T) {
	t.Parallel()
	c := New()
	c.Refresh([]llm.Provider{&fakeProvider{name: "a", models: []string{"model-a"}}})
	_, err := c.Resolve("model-a")
	require.NoError(t, err)

	c.Refresh([]llm.Provider{&fakeProvider{name: "b", models: []string{"model-b"}}})
	_, err = c.Resolve("model-a")
	assert.ErrorIs(t, err, llm.ErrNoProviderForModel)

	prov, err := c.Resolve("model-b")
	require.NoError(t, err)
	assert.Equal(t, "b", prov.Name())
	assert.Len(t, c.Providers(), 1)
}
