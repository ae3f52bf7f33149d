package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/registry"
)

type stubProvider struct {
	name         string
	models       []string
	caps         []llm.Capability
	embedErr     error
	embedCalls   int
	completion   llm.CompletionResponse
	completionErr error
}

func (s *stubProvider) Name() string                  { return s.name }
func (s *stubProvider) Capabilities() []llm.Capability { return s.caps }
func (s *stubProvider) Models() []string               { return s.models }

func (s *stubProvider) Embeddings(context.Context, string, []string, llm.EmbeddingOperation) ([][]float32, error) {
	s.embedCalls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return [][]float32{{1, 2, 3}}, nil
}

func (s *stubProvider) Completion(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	if s.completionErr != nil {
		return llm.CompletionResponse{}, s.completionErr
	}
	return s.completion, nil
}

func (s *stubProvider) TokenCount(_, text string) (int, error) { return len(text), nil }

type permanentErr struct{ msg string }

func (e permanentErr) Error() string   { return e.msg }
func (e permanentErr) Temporary() bool { return false }

func TestPool_Embeddings_FailoverSkipsFailingProvider(t *testing.T) {
	t.Parallel()
	failing := &stubProvider{name: "primary", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityEmbedding}, embedErr: errors.New("boom")}
	ok := &stubProvider{name: "secondary", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityEmbedding}}

	p := New([]llm.Provider{failing, ok}, nil, StrategyFailover, 1)
	vectors, err := p.Embeddings(context.Background(), "m", []string{"hello"}, llm.EmbeddingOperationDocument)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, 1, failing.embedCalls)
}

func TestPool_Embeddings_PrimaryOnlyNeverTriesSecondary(t *testing.T) {
	t.Parallel()
	failing := &stubProvider{name: "primary", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityEmbedding}, embedErr: permanentErr{"nope"}}
	ok := &stubProvider{name: "secondary", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityEmbedding}}

	p := New([]llm.Provider{failing, ok}, nil, StrategyPrimaryOnly, 1)
	_, err := p.Embeddings(context.Background(), "m", []string{"hello"}, llm.EmbeddingOperationDocument)
	assert.Error(t, err)
	assert.Equal(t, 0, ok.embedCalls)
}

func TestPool_ModelBased_PrefersRegistryMatch(t *testing.T) {
	t.Parallel()
	a := &stubProvider{name: "a", models: []string{"model-a"}, caps: []llm.Capability{llm.CapabilityEmbedding}}
	b := &stubProvider{name: "b", models: []string{"model-b"}, caps: []llm.Capability{llm.CapabilityEmbedding}}
	reg := registry.New()

	p := New([]llm.Provider{a, b}, reg, StrategyModelBased, 1)
	_, err := p.Embeddings(context.Background(), "model-b", []string{"x"}, llm.EmbeddingOperationDocument)
	require.NoError(t, err)
	assert.Equal(t, 0, a.embedCalls)
	assert.Equal(t, 1, b.embedCalls)
}

func TestPool_CompletionDual_RequiresTwoCandidates(t *testing.T) {
	t.Parallel()
	a := &stubProvider{name: "a", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityCompletion}, completion: llm.CompletionResponse{Text: "a"}}

	p := New([]llm.Provider{a}, nil, StrategyDualVerification, 1)
	_, _, err := p.CompletionDual(context.Background(), llm.CompletionRequest{Model: "m"})
	assert.Error(t, err)
}

func TestPool_CompletionDual_ReturnsBothOnSuccess(t *testing.T) {
	t.Parallel()
	a := &stubProvider{name: "a", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityCompletion}, completion: llm.CompletionResponse{Text: "a"}}
	b := &stubProvider{name: "b", models: []string{"m"}, caps: []llm.Capability{llm.CapabilityCompletion}, completion: llm.CompletionResponse{Text: "b"}}

	p := New([]llm.Provider{a, b}, nil, StrategyDualVerification, 1)
	respA, respB, err := p.CompletionDual(context.Background(), llm.CompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "a", respA.Text)
	assert.Equal(t, "b", respB.Text)
}

func TestPool_TokenCount_FallsBackToFirstProviderWithoutRegistry(t *testing.T) {
	t.Parallel()
	a := &stubProvider{name: "a", models: []string{"m"}}
	p := New([]llm.Provider{a}, nil, StrategyFailover, 1)
	n, err := p.TokenCount("unregistered-model", "hello world")
	require.NoError(t, err)
	assert.Equal(t, len("hello world"), n)
}
