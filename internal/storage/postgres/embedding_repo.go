package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

// EmbeddingRepo persists DocEmbedding rows, following the orchestrator's
// two-step vectorization: rows are created with a NULL embedding_vector in
// phase 2.2, then updated one-by-one with real vectors in phase 2.3 so a
// mid-batch failure leaves only the unprocessed rows NULL, not the whole
// document.
type EmbeddingRepo struct {
	pool *pgxpool.Pool
}

func NewEmbeddingRepo(pool *pgxpool.Pool) *EmbeddingRepo { return &EmbeddingRepo{pool: pool} }

// CreateBatchPending inserts all rows with NULL vectors, returning their
// assigned IDs in the same order via RETURNING id.
func (r *EmbeddingRepo) CreateBatchPending(ctx context.Context, rows []*model.DocEmbedding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin embedding batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range rows {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: marshal embedding metadata: %w", err)
		}
		row := tx.QueryRow(ctx, `
INSERT INTO doc_embedding (chapter_id, documento_id, library_id, tipo, ordinal, text, embedding_model, operation, token_count, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at`,
			e.ChapterID, e.DocumentoID, e.LibraryID, string(e.Tipo), e.Ordinal, e.Text, e.EmbeddingModel, string(e.Operation), e.TokenCount, metadata)
		if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
			return fmt.Errorf("postgres: insert doc_embedding %d: %w", e.Ordinal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit embedding batch: %w", err)
	}
	return nil
}

// UpdateVector writes the computed vector for a single row, isolated from
// its siblings so a failure does not roll back already-computed vectors in
// the same batch.
func (r *EmbeddingRepo) UpdateVector(ctx context.Context, id int64, vector []float32, operation model.EmbeddingOperation) error {
	_, err := r.pool.Exec(ctx, `
UPDATE doc_embedding SET embedding_vector=$2, operation=$3 WHERE id=$1`,
		id, pgvector.NewVector(vector), string(operation))
	if err != nil {
		return fmt.Errorf("postgres: update embedding vector for id %d: %w", id, err)
	}
	return nil
}

// PendingForDocumento returns rows still awaiting vectorization (NULL
// embedding_vector), used for resume-on-restart.
func (r *EmbeddingRepo) PendingForDocumento(ctx context.Context, documentoID int64) ([]*model.DocEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, chapter_id, documento_id, library_id, tipo, ordinal, text, embedding_model, operation, token_count, metadata, created_at
FROM doc_embedding WHERE documento_id=$1 AND embedding_vector IS NULL ORDER BY ordinal`, documentoID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending embeddings: %w", err)
	}
	defer rows.Close()

	var out []*model.DocEmbedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEmbedding(row pgx.Rows) (*model.DocEmbedding, error) {
	var e model.DocEmbedding
	var tipo, operation string
	var metadata []byte
	if err := row.Scan(&e.ID, &e.ChapterID, &e.DocumentoID, &e.LibraryID, &tipo, &e.Ordinal, &e.Text,
		&e.EmbeddingModel, &operation, &e.TokenCount, &metadata, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("postgres: scan doc_embedding: %w", err)
	}
	e.Tipo = model.TipoEmbedding(tipo)
	e.Operation = model.EmbeddingOperation(operation)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal doc_embedding metadata: %w", err)
		}
	}
	return &e, nil
}
