package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/pool"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/cache"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// semanticSearcher is satisfied by both postgres.SearchRepo and
// vectoralt.Store, letting Engine swap the vector leg of hybrid search
// between pgvector and Qdrant without touching fusion logic. Full-text
// search always stays on Postgres.
type semanticSearcher interface {
	SemanticSearch(ctx context.Context, libraryID int64, queryVector []float32, limit int) ([]postgres.ScoredEmbedding, error)
}

// Engine runs hybrid search: it turns a query into a vector via the
// provider pool, runs semantic and textual leaf queries against a library,
// and fuses them with RRF using the library's semantic/textual weights.
type Engine struct {
	text           *postgres.SearchRepo
	semantic       semanticSearcher
	libraries      *postgres.LibraryRepo
	pool           *pool.Pool
	cache          *cache.Client
	embeddingModel string
	rrfK           int

	group singleflight.Group
}

// New builds a retrieval Engine. queryCache may be nil to disable the
// Redis-backed query-embedding cache; singleflight dedup still applies.
// altVector may be nil, in which case search also serves the semantic leg
// (the default pgvector-only configuration); pass a *vectoralt.Store to
// run semantic search against Qdrant instead.
func New(search *postgres.SearchRepo, libraries *postgres.LibraryRepo, llmPool *pool.Pool, queryCache *cache.Client, embeddingModel string, rrfK int, altVector semanticSearcher) *Engine {
	if rrfK <= 0 {
		rrfK = 60
	}
	semantic := semanticSearcher(search)
	if altVector != nil {
		semantic = altVector
	}
	return &Engine{text: search, semantic: semantic, libraries: libraries, pool: llmPool, cache: queryCache, embeddingModel: embeddingModel, rrfK: rrfK}
}

// Search runs hybrid retrieval for rawQuery against libraryID, returning up
// to limit fused results ordered by descending score.
func (e *Engine) Search(ctx context.Context, libraryID int64, rawQuery string, limit int) ([]Result, error) {
	lib, err := e.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, fmt.Errorf("retrieval: load library %d: %w", libraryID, err)
	}

	vector, err := e.queryEmbedding(ctx, rawQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query embedding: %w", err)
	}

	semantic, err := e.semantic.SemanticSearch(ctx, libraryID, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: semantic search: %w", err)
	}

	tsquery, err := PreprocessQuery(ctx, e.text, rawQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: preprocess query: %w", err)
	}
	var textual []postgres.ScoredEmbedding
	if tsquery != "" {
		textual, err = e.text.TextualSearch(ctx, libraryID, tsquery, limit)
		if err != nil {
			return nil, fmt.Errorf("retrieval: textual search: %w", err)
		}
	}

	fused := FuseRRF(semantic, textual, lib.SemanticWeight, lib.TextualWeight, e.rrfK)
	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// SemanticOnly runs vector-only search, skipping full-text fusion — useful
// for callers that already have a textual answer and only need nearest
// neighbors.
func (e *Engine) SemanticOnly(ctx context.Context, libraryID int64, rawQuery string, limit int) ([]Result, error) {
	vector, err := e.queryEmbedding(ctx, rawQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query embedding: %w", err)
	}
	semantic, err := e.semantic.SemanticSearch(ctx, libraryID, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: semantic search: %w", err)
	}
	return FuseRRF(semantic, nil, 1, 0, e.rrfK), nil
}

// TextualOnly runs full-text-only search, skipping vector generation
// entirely to avoid an unnecessary embedding call.
func (e *Engine) TextualOnly(ctx context.Context, libraryID int64, rawQuery string, limit int) ([]Result, error) {
	tsquery, err := PreprocessQuery(ctx, e.text, rawQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: preprocess query: %w", err)
	}
	if tsquery == "" {
		return nil, nil
	}
	textual, err := e.text.TextualSearch(ctx, libraryID, tsquery, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: textual search: %w", err)
	}
	return FuseRRF(nil, textual, 0, 1, e.rrfK), nil
}

// queryEmbedding deduplicates concurrent identical queries through
// singleflight so a burst of repeated searches costs one embedding call,
// and consults the Redis query-embedding cache first when one is wired.
func (e *Engine) queryEmbedding(ctx context.Context, rawQuery string) ([]float32, error) {
	if vec, ok := e.cache.GetQueryEmbedding(ctx, e.embeddingModel, rawQuery); ok {
		return vec, nil
	}
	v, err, _ := e.group.Do(rawQuery, func() (any, error) {
		vectors, err := e.pool.Embeddings(ctx, e.embeddingModel, []string{rawQuery}, llm.EmbeddingOperationQuery)
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("retrieval: embedding provider returned no vectors")
		}
		return vectors[0], nil
	})
	if err != nil {
		return nil, err
	}
	vector := v.([]float32)
	e.cache.SetQueryEmbedding(ctx, e.embeddingModel, rawQuery, vector)
	return vector, nil
}
