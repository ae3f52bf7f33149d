// Package openai implements llm.Provider over the OpenAI API (and any
// OpenAI-compatible endpoint, e.g. a local vLLM/LM Studio server) using the
// official openai-go SDK.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/util"
)

// Config configures a single OpenAI-compatible provider registration.
type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Models  []string
}

// Client is an llm.Provider backed by the OpenAI SDK.
type Client struct {
	name   string
	sdk    sdk.Client
	models []string
}

// New builds a Client. httpClient may be nil to use http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(httpClient)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" && base != "https://api.openai.com/v1" {
		opts = append(opts, option.WithBaseURL(base))
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Client{name: name, sdk: sdk.NewClient(opts...), models: cfg.Models}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Capabilities() []llm.Capability {
	return []llm.Capability{llm.CapabilityEmbedding, llm.CapabilityCompletion}
}

func (c *Client) Models() []string { return c.models }

// Embeddings computes vector embeddings. The OpenAI API has no task-type
// parameter, so op is accepted for interface conformance and ignored.
func (c *Client) Embeddings(ctx context.Context, model string, inputs []string, op llm.EmbeddingOperation) ([][]float32, error) {
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(model),
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings request failed: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *Client) Completion(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := []sdk.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("openai: completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, fmt.Errorf("openai: empty completion response")
	}
	return llm.CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// TokenCount estimates tokens using a word-count heuristic; this provider
// does not expose a tokenizer endpoint.
func (c *Client) TokenCount(model, text string) (int, error) {
	return util.CountTokens(text), nil
}

var _ llm.Provider = (*Client)(nil)
