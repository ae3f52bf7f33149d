package vectoralt

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("QDRANT_DSN")
	if dsn == "" {
		t.Skip("QDRANT_DSN not set")
	}
	store, err := New(context.Background(), dsn, "jsimplerag_test_collection", 4, "cosine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_UpsertAndSemanticSearch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	vector := []float32{0.1, 0.1, 0.1, 0.1}
	require.NoError(t, store.Upsert(ctx, 1, 42, 7, 3, "mirrored chunk text", vector))

	results, err := store.SemanticSearch(ctx, 1, vector, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(7), results[0].ChapterID)
	assert.Equal(t, int64(3), results[0].DocumentoID)
	assert.Equal(t, "mirrored chunk text", results[0].Text)
}

func TestStore_Delete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	vector := []float32{0.2, 0.2, 0.2, 0.2}
	require.NoError(t, store.Upsert(ctx, 1, 99, 1, 1, "to be deleted", vector))
	require.NoError(t, store.Delete(ctx, 99))
}

func TestNew_RejectsMissingCollectionOrDimension(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), "http://localhost:6334", "", 4, "cosine")
	assert.Error(t, err)

	_, err = New(context.Background(), "http://localhost:6334", "collection", 0, "cosine")
	assert.Error(t, err)
}
