package ingestion

import (
	"bytes"
	"context"
	"fmt"

	"github.com/AlessandroBorges/jsimplerag-go/internal/objectstore"
)

// OriginalStore retains the raw bytes a Documento was uploaded from, keyed
// by its id, so a future re-conversion never requires re-upload. This is
// not required by uploadFile's contract, which only promises the converted
// Markdown, but keeping the source is cheap insurance once an object store
// is configured.
type OriginalStore struct {
	objects objectstore.ObjectStore
}

func NewOriginalStore(objects objectstore.ObjectStore) *OriginalStore {
	return &OriginalStore{objects: objects}
}

func originalKey(documentoID int64, filename string) string {
	return fmt.Sprintf("documentos/%d/original/%s", documentoID, filename)
}

// Put stores the original bytes a documento was converted from.
func (o *OriginalStore) Put(ctx context.Context, documentoID int64, filename string, data []byte, contentType string) error {
	_, err := o.objects.Put(ctx, originalKey(documentoID, filename), bytes.NewReader(data), objectstore.PutOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("ingestion: store original bytes for documento %d: %w", documentoID, err)
	}
	return nil
}

// Get retrieves the original bytes previously stored for documentoID.
func (o *OriginalStore) Get(ctx context.Context, documentoID int64, filename string) ([]byte, error) {
	r, _, err := o.objects.Get(ctx, originalKey(documentoID, filename))
	if err != nil {
		return nil, fmt.Errorf("ingestion: load original bytes for documento %d: %w", documentoID, err)
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("ingestion: read original bytes for documento %d: %w", documentoID, err)
	}
	return buf.Bytes(), nil
}
