package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

// LibraryRepo persists Library rows.
type LibraryRepo struct {
	pool *pgxpool.Pool
}

func NewLibraryRepo(pool *pgxpool.Pool) *LibraryRepo { return &LibraryRepo{pool: pool} }

func (r *LibraryRepo) Create(ctx context.Context, lib *model.Library) error {
	if err := lib.Validate(); err != nil {
		return err
	}
	if lib.UUID == uuid.Nil {
		lib.UUID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO library (uuid, name, description, semantic_weight, textual_weight, default_llm_model, default_embed_model)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at, updated_at`,
		lib.UUID, lib.Name, lib.Description, lib.SemanticWeight, lib.TextualWeight, lib.DefaultLLMModel, lib.DefaultEmbedModel)
	if err := row.Scan(&lib.ID, &lib.CreatedAt, &lib.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: insert library: %w", err)
	}
	return nil
}

func (r *LibraryRepo) GetByID(ctx context.Context, id int64) (*model.Library, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, uuid, name, description, semantic_weight, textual_weight, default_llm_model, default_embed_model, created_at, updated_at
FROM library WHERE id=$1`, id)
	return scanLibrary(row)
}

func (r *LibraryRepo) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Library, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, uuid, name, description, semantic_weight, textual_weight, default_llm_model, default_embed_model, created_at, updated_at
FROM library WHERE uuid=$1`, id)
	return scanLibrary(row)
}

func (r *LibraryRepo) Update(ctx context.Context, lib *model.Library) error {
	if err := lib.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
UPDATE library SET name=$2, description=$3, semantic_weight=$4, textual_weight=$5,
  default_llm_model=$6, default_embed_model=$7, updated_at=now()
WHERE id=$1`, lib.ID, lib.Name, lib.Description, lib.SemanticWeight, lib.TextualWeight, lib.DefaultLLMModel, lib.DefaultEmbedModel)
	if err != nil {
		return fmt.Errorf("postgres: update library: %w", err)
	}
	return nil
}

func (r *LibraryRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM library WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete library: %w", err)
	}
	return nil
}

func scanLibrary(row pgx.Row) (*model.Library, error) {
	var l model.Library
	if err := row.Scan(&l.ID, &l.UUID, &l.Name, &l.Description, &l.SemanticWeight, &l.TextualWeight,
		&l.DefaultLLMModel, &l.DefaultEmbedModel, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, fmt.Errorf("postgres: scan library: %w", err)
	}
	return &l, nil
}
