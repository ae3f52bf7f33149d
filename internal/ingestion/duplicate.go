package ingestion

import (
	"context"
	"hash/crc64"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

var crc64Table = crc64.MakeTable(crc64.ISO)

// ErrDuplicateDocumento re-exports the storage layer's sentinel so callers
// outside this package don't need to import internal/storage/postgres
// just to compare against it.
var ErrDuplicateDocumento = postgres.ErrDuplicateDocumento

// DuplicateDetector computes a content checksum and checks it against
// existing documents in the same library before insertion.
type DuplicateDetector struct {
	documentos *postgres.DocumentoRepo
}

func NewDuplicateDetector(documentos *postgres.DocumentoRepo) *DuplicateDetector {
	return &DuplicateDetector{documentos: documentos}
}

// Checksum hashes the converted markdown once, after format conversion.
func (d *DuplicateDetector) Checksum(markdown string) uint64 {
	return crc64.Checksum([]byte(markdown), crc64Table)
}

// CheckDuplicate reports whether a documento with the same (libraryID,
// checksum) already exists, returning it when found.
func (d *DuplicateDetector) CheckDuplicate(ctx context.Context, libraryID int64, checksum uint64) (*model.Documento, bool, error) {
	return d.documentos.FindByChecksum(ctx, libraryID, checksum)
}
