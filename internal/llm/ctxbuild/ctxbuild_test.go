package ctxbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLLMContext_PrecedenceOrder(t *testing.T) {
	t.Parallel()
	d := Defaults{LLMModel: "default-model", LLMTemperature: 0.2, LLMMaxTokens: 512}

	t.Run("override wins", func(t *testing.T) {
		c := ResolveLLMContext("override-model", "library-model", d)
		assert.Equal(t, "override-model", c.Model)
	})
	t.Run("library default wins absent override", func(t *testing.T) {
		c := ResolveLLMContext("", "library-model", d)
		assert.Equal(t, "library-model", c.Model)
	})
	t.Run("process default is last resort", func(t *testing.T) {
		c := ResolveLLMContext("", "", d)
		assert.Equal(t, "default-model", c.Model)
		assert.Equal(t, 0.2, c.Temperature)
		assert.Equal(t, 512, c.MaxTokens)
	})
	t.Run("whitespace-only override is ignored", func(t *testing.T) {
		c := ResolveLLMContext("   ", "library-model", d)
		assert.Equal(t, "library-model", c.Model)
	})
}

func TestResolveEmbeddingContext_PrecedenceOrder(t *testing.T) {
	t.Parallel()
	d := Defaults{EmbeddingModel: "default-embed", EmbeddingContextLen: 8191, EmbeddingDim: 1536}

	c := ResolveEmbeddingContext("", "", d)
	assert.Equal(t, "default-embed", c.Model)
	assert.Equal(t, 8191, c.ContextLength)
	assert.Equal(t, 1536, c.Dimension)

	c = ResolveEmbeddingContext("override-embed", "library-embed", d)
	assert.Equal(t, "override-embed", c.Model)
}
