// Package google implements llm.Provider over the Gemini API using the
// google.golang.org/genai SDK, supporting both embeddings and completion.
package google

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/util"
)

// Config configures a single Google provider registration.
type Config struct {
	Name   string
	APIKey string
	Models []string
}

// Client is an llm.Provider backed by the genai SDK.
type Client struct {
	name   string
	client *genai.Client
	models []string
}

// New builds a Client against the Gemini API backend.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (*Client, error) {
	ccfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		ccfg.HTTPClient = httpClient
	}
	c, err := genai.NewClient(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("google: client init failed: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = "google"
	}
	return &Client{name: name, client: c, models: cfg.Models}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Capabilities() []llm.Capability {
	return []llm.Capability{llm.CapabilityEmbedding, llm.CapabilityCompletion}
}

func (c *Client) Models() []string { return c.models }

// Embeddings computes vector embeddings, tagging the call with Gemini's
// task_type so the model biases the vector toward the stated use (e.g. a
// document vector differs from a query vector for the same text).
func (c *Client) Embeddings(ctx context.Context, model string, inputs []string, op llm.EmbeddingOperation) ([][]float32, error) {
	contents := make([]*genai.Content, len(inputs))
	for i, text := range inputs {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: geminiTaskType(op)}
	resp, err := c.client.Models.EmbedContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("google: embed content failed: %w", err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (c *Client) Completion(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("google: generate content failed: %w", err)
	}
	text := resp.Text()
	var inTok, outTok int
	if resp.UsageMetadata != nil {
		inTok = int(resp.UsageMetadata.PromptTokenCount)
		outTok = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return llm.CompletionResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  inTok,
		OutputTokens: outTok,
	}, nil
}

// TokenCount estimates tokens using a word-count heuristic to avoid an
// extra network round-trip on the hot path; callers needing exact counts
// should use the SDK's CountTokens endpoint directly.
func (c *Client) TokenCount(model, text string) (int, error) {
	return util.CountTokens(text), nil
}

// geminiTaskType maps the provider-agnostic operation tag to Gemini's
// embedContent task_type values.
func geminiTaskType(op llm.EmbeddingOperation) string {
	switch op {
	case llm.EmbeddingOperationQuery:
		return "RETRIEVAL_QUERY"
	case llm.EmbeddingOperationDocument:
		return "RETRIEVAL_DOCUMENT"
	case llm.EmbeddingOperationClustering:
		return "CLUSTERING"
	case llm.EmbeddingOperationClassification:
		return "CLASSIFICATION"
	case llm.EmbeddingOperationSemanticSimilarity:
		return "SEMANTIC_SIMILARITY"
	case llm.EmbeddingOperationFactCheck:
		return "FACT_VERIFICATION"
	case llm.EmbeddingOperationCodeRetrieval:
		return "CODE_RETRIEVAL_QUERY"
	default:
		return "TASK_TYPE_UNSPECIFIED"
	}
}

var _ llm.Provider = (*Client)(nil)
