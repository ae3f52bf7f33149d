// Package model defines the hierarchical document domain:
// Library -> Documento -> Chapter -> DocEmbedding.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentType tags a Documento with the splitting strategy it requires.
type ContentType string

const (
	ContentTypeNormative ContentType = "normative"
	ContentTypeWiki       ContentType = "wiki"
	ContentTypeGeneric    ContentType = "generic"
)

// TipoEmbedding distinguishes what a DocEmbedding row actually indexes.
type TipoEmbedding string

const (
	TipoEmbeddingChapter TipoEmbedding = "chapter"
	TipoEmbeddingChunk   TipoEmbedding = "chunk"
	TipoEmbeddingSummary TipoEmbedding = "summary"
)

// EmbeddingOperation tags how a chunk's vector was produced, for diagnostics.
type EmbeddingOperation string

const (
	EmbeddingOperationDirect     EmbeddingOperation = "direct"
	EmbeddingOperationTruncated  EmbeddingOperation = "truncated"
	EmbeddingOperationSummarized EmbeddingOperation = "summarized"
)

// ProcessingState is the lifecycle of a Documento through ingestion.
type ProcessingState string

const (
	StatePending    ProcessingState = "pending"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateFailed     ProcessingState = "failed"
)

// Library groups documents under shared retrieval weighting and defaults.
type Library struct {
	ID                int64
	UUID              uuid.UUID
	Name              string
	Description       string
	SemanticWeight    float64
	TextualWeight     float64
	DefaultLLMModel   string
	DefaultEmbedModel string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate enforces the invariant that retrieval weights sum to 1.0.
func (l *Library) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("library: name is required")
	}
	sum := l.SemanticWeight + l.TextualWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("library: semantic_weight (%.3f) + textual_weight (%.3f) must sum to 1.0", l.SemanticWeight, l.TextualWeight)
	}
	if l.SemanticWeight < 0 || l.TextualWeight < 0 {
		return fmt.Errorf("library: weights must be non-negative")
	}
	return nil
}

// Documento is a single ingested document within a Library.
type Documento struct {
	ID          int64
	UUID        uuid.UUID
	LibraryID   int64
	Title       string
	SourcePath  string
	ContentType ContentType
	Checksum    uint64
	State       ProcessingState
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chapter is a top-level section produced by splitting a Documento.
type Chapter struct {
	ID          int64
	DocumentoID int64
	Ordinal     int
	Title       string
	Content     string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// DocEmbedding is one vector-indexed unit: either a whole chapter or one of
// its chunks. EmbeddingVector is nil until the vectorization phase fills it.
type DocEmbedding struct {
	ID              int64
	ChapterID       int64
	DocumentoID     int64
	LibraryID       int64
	Tipo            TipoEmbedding
	Ordinal         int
	Text            string
	EmbeddingVector []float32
	EmbeddingModel  string
	Operation       EmbeddingOperation
	TokenCount      int
	Metadata        map[string]any
	CreatedAt       time.Time
}

// NewLibrary builds a Library with a fresh UUID and the default 0.6/0.4
// semantic/textual weight split, ready for caller overrides before
// Validate/persist.
func NewLibrary(name, description string) *Library {
	now := timeNow()
	return &Library{
		UUID:           uuid.New(),
		Name:           name,
		Description:    description,
		SemanticWeight: 0.6,
		TextualWeight:  0.4,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewDocumento builds a Documento in the pending state with a fresh UUID.
func NewDocumento(libraryID int64, title, sourcePath string, contentType ContentType) *Documento {
	now := timeNow()
	return &Documento{
		UUID:        uuid.New(),
		LibraryID:   libraryID,
		Title:       title,
		SourcePath:  sourcePath,
		ContentType: contentType,
		State:       StatePending,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// timeNow is isolated so tests can be deterministic about creation time
// without reaching into package internals.
var timeNow = time.Now
