package objectstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

// testS3Store connects to an S3-compatible endpoint (e.g. a local MinIO
// instance) described by S3_ENDPOINT/S3_BUCKET, skipping when unconfigured.
func testS3Store(t *testing.T) *S3Store {
	t.Helper()
	endpoint := os.Getenv("S3_ENDPOINT")
	bucket := os.Getenv("S3_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("S3_ENDPOINT/S3_BUCKET not set")
	}
	store, err := NewS3Store(context.Background(), config.S3Config{
		Enabled:      true,
		Bucket:       bucket,
		Region:       "us-east-1",
		Endpoint:     endpoint,
		AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		SecretKey:    os.Getenv("S3_SECRET_KEY"),
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestS3Store_PutAndGetRoundTrip(t *testing.T) {
	store := testS3Store(t)
	ctx := context.Background()

	content := []byte("original document bytes")
	_, err := store.Put(ctx, "originals/doc-1.bin", bytes.NewReader(content), PutOptions{ContentType: "application/octet-stream"})
	require.NoError(t, err)

	reader, attrs, err := store.Get(ctx, "originals/doc-1.bin")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, int64(len(content)), attrs.Size)
}

func TestS3Store_GetMissingKeyReturnsNotFound(t *testing.T) {
	store := testS3Store(t)
	_, _, err := store.Get(context.Background(), "originals/does-not-exist.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}
