// Package llm defines the provider abstraction, the model registry cache,
// and the routing pool used by the ingestion and retrieval engines to talk
// to embedding and completion backends.
package llm

import (
	"context"
	"errors"
)

// ErrEmbeddingsUnsupported is returned by providers (e.g. Anthropic) that
// only implement completion.
var ErrEmbeddingsUnsupported = errors.New("llm: provider does not support embeddings")

// ErrNoProviderForModel is returned by the registry when no registered
// provider can serve a requested model name.
var ErrNoProviderForModel = errors.New("llm: no provider registered for model")

// Capability enumerates what a Provider can be asked to do.
type Capability string

const (
	CapabilityEmbedding  Capability = "embedding"
	CapabilityCompletion Capability = "completion"
)

// EmbeddingOperation tags the semantic intent of an embedding call so
// providers that support task-aware embeddings (e.g. Gemini's task_type)
// can bias the vector accordingly. Providers that cannot distinguish
// operations are expected to treat all tags as EmbeddingOperationDefault.
type EmbeddingOperation string

const (
	EmbeddingOperationQuery              EmbeddingOperation = "QUERY"
	EmbeddingOperationDocument           EmbeddingOperation = "DOCUMENT"
	EmbeddingOperationClustering         EmbeddingOperation = "CLUSTERING"
	EmbeddingOperationClassification     EmbeddingOperation = "CLASSIFICATION"
	EmbeddingOperationSemanticSimilarity EmbeddingOperation = "SEMANTIC_SIMILARITY"
	EmbeddingOperationFactCheck          EmbeddingOperation = "FACT_CHECK"
	EmbeddingOperationCodeRetrieval      EmbeddingOperation = "CODE_RETRIEVAL"
	EmbeddingOperationDefault            EmbeddingOperation = "DEFAULT"
)

// CompletionRequest is a single non-streaming completion call.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is the provider-agnostic result of a completion call.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is the unified API every LLM backend implements. A provider may
// support only a subset of capabilities; callers check Capabilities() or
// rely on the pool's SPECIALIZED routing to avoid misrouting requests.
type Provider interface {
	// Name identifies the provider instance for logging and routing.
	Name() string

	// Capabilities reports what this provider can serve.
	Capabilities() []Capability

	// Models lists the model names (and aliases) this provider can serve.
	Models() []string

	// Embeddings computes vector embeddings for a batch of inputs. op tags
	// the semantic intent of the call; providers that cannot act on it
	// should ignore it rather than error.
	Embeddings(ctx context.Context, model string, inputs []string, op EmbeddingOperation) ([][]float32, error)

	// Completion produces a single completion for the given request.
	Completion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// TokenCount estimates the number of tokens text would occupy for model.
	TokenCount(model, text string) (int, error)
}

// HasCapability reports whether p declares cap among its capabilities.
func HasCapability(p Provider, cap Capability) bool {
	for _, c := range p.Capabilities() {
		if c == cap {
			return true
		}
	}
	return false
}
