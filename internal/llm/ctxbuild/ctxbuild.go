// Package ctxbuild resolves the effective LLM and embedding model for a
// given operation using the override chain: explicit override, then the
// owning library's default, then the process-wide default.
package ctxbuild

import "strings"

// LLMContext is the resolved completion configuration for one call.
type LLMContext struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// EmbeddingContext is the resolved embedding configuration for one call.
// ContextLength is the model's declared input token cap, used for oversize
// handling; Dimension is the output vector width.
type EmbeddingContext struct {
	Model         string
	ContextLength int
	Dimension     int
}

// Defaults holds the process-wide fallback configuration.
type Defaults struct {
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	EmbeddingModel       string
	EmbeddingContextLen  int
	EmbeddingDim         int
}

// ResolveLLMContext applies override -> libraryDefault -> processDefault.
func ResolveLLMContext(override, libraryDefault string, d Defaults) LLMContext {
	model := firstNonEmpty(override, libraryDefault, d.LLMModel)
	return LLMContext{
		Model:       model,
		Temperature: d.LLMTemperature,
		MaxTokens:   d.LLMMaxTokens,
	}
}

// ResolveEmbeddingContext applies override -> libraryDefault -> processDefault.
func ResolveEmbeddingContext(override, libraryDefault string, d Defaults) EmbeddingContext {
	model := firstNonEmpty(override, libraryDefault, d.EmbeddingModel)
	return EmbeddingContext{
		Model:         model,
		ContextLength: d.EmbeddingContextLen,
		Dimension:     d.EmbeddingDim,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
