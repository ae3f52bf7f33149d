package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

// ChapterRepo persists Chapter rows.
type ChapterRepo struct {
	pool *pgxpool.Pool
}

func NewChapterRepo(pool *pgxpool.Pool) *ChapterRepo { return &ChapterRepo{pool: pool} }

// CreateBatch inserts all chapters for a documento in one transaction. The
// pending embeddings of phase 2.2 are inserted afterward in a separate
// transaction (EmbeddingRepo.CreateBatchPending), so the chapters stay
// committed if that second insert fails.
func (r *ChapterRepo) CreateBatch(ctx context.Context, chapters []*model.Chapter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin chapter batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chapters {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: marshal chapter metadata: %w", err)
		}
		row := tx.QueryRow(ctx, `
INSERT INTO chapter (documento_id, ordinal, title, content, metadata)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at`, c.DocumentoID, c.Ordinal, c.Title, c.Content, metadata)
		if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
			return fmt.Errorf("postgres: insert chapter %d: %w", c.Ordinal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit chapter batch: %w", err)
	}
	return nil
}

// DeleteByDocumento removes all chapters (and, via CASCADE, their
// doc_embeddings) for a documento, leaving the documento row itself intact —
// the destructive step of the overwrite controller's reingest path.
func (r *ChapterRepo) DeleteByDocumento(ctx context.Context, documentoID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chapter WHERE documento_id=$1`, documentoID)
	if err != nil {
		return fmt.Errorf("postgres: delete chapters for documento %d: %w", documentoID, err)
	}
	return nil
}

func (r *ChapterRepo) ListByDocumento(ctx context.Context, documentoID int64) ([]*model.Chapter, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, documento_id, ordinal, title, content, metadata, created_at
FROM chapter WHERE documento_id=$1 ORDER BY ordinal`, documentoID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chapters: %w", err)
	}
	defer rows.Close()

	var out []*model.Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChapter(row pgx.Rows) (*model.Chapter, error) {
	var c model.Chapter
	var metadata []byte
	if err := row.Scan(&c.ID, &c.DocumentoID, &c.Ordinal, &c.Title, &c.Content, &metadata, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("postgres: scan chapter: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal chapter metadata: %w", err)
		}
	}
	return &c, nil
}
