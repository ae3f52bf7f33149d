// Package anthropic implements llm.Provider's completion surface over the
// Anthropic Messages API. Anthropic has no public embeddings endpoint, so
// Embeddings always returns llm.ErrEmbeddingsUnsupported; the provider pool
// is expected to register it with only llm.CapabilityCompletion.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/util"
)

// Config configures a single Anthropic provider registration.
type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Models  []string
}

// Client is an llm.Provider backed by the Anthropic SDK.
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
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}
	return &Client{name: name, sdk: sdk.NewClient(opts...), models: cfg.Models}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Capabilities() []llm.Capability {
	return []llm.Capability{llm.CapabilityCompletion}
}

func (c *Client) Models() []string { return c.models }

func (c *Client) Embeddings(ctx context.Context, model string, inputs []string, op llm.EmbeddingOperation) ([][]float32, error) {
	return nil, llm.ErrEmbeddingsUnsupported
}

func (c *Client) Completion(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: message request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return llm.CompletionResponse{
		Text:         text.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// TokenCount estimates tokens using a word-count heuristic; Anthropic's
// token counting endpoint is not wired here.
func (c *Client) TokenCount(model, text string) (int, error) {
	return util.CountTokens(text), nil
}

var _ llm.Provider = (*Client)(nil)
