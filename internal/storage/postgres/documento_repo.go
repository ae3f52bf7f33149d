package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

// ErrDuplicateDocumento is returned when a (library_id, checksum) pair
// already exists, implementing the duplicate-detection uniqueness
// invariant at the storage layer.
var ErrDuplicateDocumento = errors.New("postgres: documento with this checksum already exists in library")

// DocumentoRepo persists Documento rows.
type DocumentoRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentoRepo(pool *pgxpool.Pool) *DocumentoRepo { return &DocumentoRepo{pool: pool} }

func (r *DocumentoRepo) Create(ctx context.Context, d *model.Documento) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal documento metadata: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO documento (uuid, library_id, title, source_path, content_type, checksum, state, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at, updated_at`,
		d.UUID, d.LibraryID, d.Title, d.SourcePath, string(d.ContentType), d.Checksum, string(d.State), metadata)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDocumento
		}
		return fmt.Errorf("postgres: insert documento: %w", err)
	}
	return nil
}

// FindByChecksum supports the duplicate detector's pre-insert check.
func (r *DocumentoRepo) FindByChecksum(ctx context.Context, libraryID int64, checksum uint64) (*model.Documento, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, uuid, library_id, title, source_path, content_type, checksum, state, metadata, created_at, updated_at
FROM documento WHERE library_id=$1 AND checksum=$2`, libraryID, checksum)
	d, err := scanDocumento(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return d, true, nil
}

func (r *DocumentoRepo) GetByID(ctx context.Context, id int64) (*model.Documento, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, uuid, library_id, title, source_path, content_type, checksum, state, metadata, created_at, updated_at
FROM documento WHERE id=$1`, id)
	return scanDocumento(row)
}

func (r *DocumentoRepo) UpdateState(ctx context.Context, id int64, state model.ProcessingState) error {
	_, err := r.pool.Exec(ctx, `UPDATE documento SET state=$2, updated_at=now() WHERE id=$1`, id, string(state))
	if err != nil {
		return fmt.Errorf("postgres: update documento state: %w", err)
	}
	return nil
}

// DeleteCascade removes a documento and, via ON DELETE CASCADE, its
// chapters and doc_embeddings — the destructive step of the overwrite
// controller's reingest path.
func (r *DocumentoRepo) DeleteCascade(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documento WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete documento: %w", err)
	}
	return nil
}

func scanDocumento(row pgx.Row) (*model.Documento, error) {
	var d model.Documento
	var contentType, state string
	var metadata []byte
	if err := row.Scan(&d.ID, &d.UUID, &d.LibraryID, &d.Title, &d.SourcePath, &contentType, &d.Checksum,
		&state, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ContentType = model.ContentType(contentType)
	d.State = model.ProcessingState(state)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal documento metadata: %w", err)
		}
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
