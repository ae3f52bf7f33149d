package postgres

import (
	"fmt"

	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ScoredEmbedding is one hit from either the vector or textual search path,
// ranked but not yet fused.
type ScoredEmbedding struct {
	ID          int64
	ChapterID   int64
	DocumentoID int64
	Text        string
	Score       float64
}

// SearchRepo runs the two leaf queries the hybrid retrieval engine fuses:
// vector similarity and full-text rank, both scoped to a library.
type SearchRepo struct {
	pool *pgxpool.Pool
}

func NewSearchRepo(pool *pgxpool.Pool) *SearchRepo { return &SearchRepo{pool: pool} }

// SemanticSearch orders doc_embedding rows in libraryID by cosine distance
// to queryVector, nearest first.
func (r *SearchRepo) SemanticSearch(ctx context.Context, libraryID int64, queryVector []float32, limit int) ([]ScoredEmbedding, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, chapter_id, documento_id, text, 1 - (embedding_vector <=> $2) AS score
FROM doc_embedding
WHERE library_id = $1 AND embedding_vector IS NOT NULL
ORDER BY embedding_vector <=> $2
LIMIT $3`, libraryID, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: semantic search: %w", err)
	}
	defer rows.Close()
	return scanScored(rows)
}

// StemTerms reduces each of terms to its Portuguese tsquery lexeme via
// plainto_tsquery, preserving order. A term that plainto_tsquery resolves
// to nothing (a stopword, or punctuation-only input) comes back as an
// empty string so the caller can drop it from the expression it builds.
func (r *SearchRepo) StemTerms(ctx context.Context, terms []string) ([]string, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT ord, coalesce(plainto_tsquery('portuguese', term)::text, '')
FROM unnest($1::text[]) WITH ORDINALITY AS t(term, ord)
ORDER BY ord`, terms)
	if err != nil {
		return nil, fmt.Errorf("postgres: stem query terms: %w", err)
	}
	defer rows.Close()

	out := make([]string, len(terms))
	i := 0
	for rows.Next() {
		var ord int64
		var lexeme string
		if err := rows.Scan(&ord, &lexeme); err != nil {
			return nil, fmt.Errorf("postgres: scan stemmed term: %w", err)
		}
		out[i] = lexeme
		i++
	}
	return out, rows.Err()
}

// TextualSearch ranks doc_embedding rows in libraryID against a
// pre-expanded tsquery string. The caller is responsible for OR-expansion;
// this query binds it with $2::tsquery so Postgres never re-parses plain
// text through plainto_tsquery, preserving the caller's operators.
func (r *SearchRepo) TextualSearch(ctx context.Context, libraryID int64, tsqueryExpr string, limit int) ([]ScoredEmbedding, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, chapter_id, documento_id, text, ts_rank(ts, $2::tsquery) AS score
FROM doc_embedding
WHERE library_id = $1 AND ts @@ $2::tsquery
ORDER BY score DESC
LIMIT $3`, libraryID, tsqueryExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: textual search: %w", err)
	}
	defer rows.Close()
	return scanScored(rows)
}

func scanScored(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ScoredEmbedding, error) {
	var out []ScoredEmbedding
	for rows.Next() {
		var s ScoredEmbedding
		if err := rows.Scan(&s.ID, &s.ChapterID, &s.DocumentoID, &s.Text, &s.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan scored embedding: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
