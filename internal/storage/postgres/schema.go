// Package postgres implements the relational persistence layer for the
// hierarchical document model: Library, Documento, Chapter, DocEmbedding.
// It is grounded on the teacher's pgvector/full-text patterns
// (persistence/databases) but owns its own schema and repositories since
// the domain rows carry typed hierarchy, not opaque string-keyed blobs.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the library/documento/chapter/doc_embedding tables,
// the generated tsvector column, and the vector/GIN indexes if they do not
// already exist. dimension is the embedding vector width configured for
// the process's embedding model.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("postgres: create vector extension: %w", err)
	}

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS library (
  id                  BIGSERIAL PRIMARY KEY,
  uuid                UUID NOT NULL UNIQUE,
  name                TEXT NOT NULL UNIQUE,
  description         TEXT NOT NULL DEFAULT '',
  semantic_weight     DOUBLE PRECISION NOT NULL DEFAULT 0.6,
  textual_weight      DOUBLE PRECISION NOT NULL DEFAULT 0.4,
  default_llm_model   TEXT NOT NULL DEFAULT '',
  default_embed_model TEXT NOT NULL DEFAULT '',
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		return fmt.Errorf("postgres: create library table: %w", err)
	}

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documento (
  id            BIGSERIAL PRIMARY KEY,
  uuid          UUID NOT NULL UNIQUE,
  library_id    BIGINT NOT NULL REFERENCES library(id) ON DELETE CASCADE,
  title         TEXT NOT NULL,
  source_path   TEXT NOT NULL DEFAULT '',
  content_type  TEXT NOT NULL DEFAULT 'generic',
  checksum      BIGINT NOT NULL,
  state         TEXT NOT NULL DEFAULT 'pending',
  metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (library_id, checksum)
);`); err != nil {
		return fmt.Errorf("postgres: create documento table: %w", err)
	}

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chapter (
  id            BIGSERIAL PRIMARY KEY,
  documento_id  BIGINT NOT NULL REFERENCES documento(id) ON DELETE CASCADE,
  ordinal       INT NOT NULL,
  title         TEXT NOT NULL DEFAULT '',
  content       TEXT NOT NULL,
  metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (documento_id, ordinal)
);`); err != nil {
		return fmt.Errorf("postgres: create chapter table: %w", err)
	}

	vecType := "vector"
	if dimension > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimension)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS doc_embedding (
  id               BIGSERIAL PRIMARY KEY,
  chapter_id       BIGINT NOT NULL REFERENCES chapter(id) ON DELETE CASCADE,
  documento_id     BIGINT NOT NULL REFERENCES documento(id) ON DELETE CASCADE,
  library_id       BIGINT NOT NULL REFERENCES library(id) ON DELETE CASCADE,
  tipo             TEXT NOT NULL,
  ordinal          INT NOT NULL,
  text             TEXT NOT NULL,
  embedding_vector %s,
  embedding_model  TEXT NOT NULL DEFAULT '',
  operation        TEXT NOT NULL DEFAULT 'direct',
  token_count      INT NOT NULL DEFAULT 0,
  metadata         JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  ts               tsvector GENERATED ALWAYS AS (to_tsvector('portuguese', coalesce(text, ''))) STORED
);`, vecType)); err != nil {
		return fmt.Errorf("postgres: create doc_embedding table: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS doc_embedding_ts_idx ON doc_embedding USING GIN (ts)`); err != nil {
		return fmt.Errorf("postgres: create tsvector index: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS doc_embedding_library_idx ON doc_embedding (library_id)`); err != nil {
		return fmt.Errorf("postgres: create library index: %w", err)
	}
	if _, err := pool.Exec(ctx, `
CREATE INDEX IF NOT EXISTS doc_embedding_vector_idx ON doc_embedding
USING hnsw (embedding_vector vector_cosine_ops)
`); err != nil {
		return fmt.Errorf("postgres: create hnsw index: %w", err)
	}

	return nil
}
