package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

func TestNewCompletionPublisher_DisabledReturnsNilWithoutError(t *testing.T) {
	t.Parallel()
	pub, err := NewCompletionPublisher(config.KafkaConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestNilPublisher_MethodsDegradeGracefully(t *testing.T) {
	t.Parallel()
	var p *CompletionPublisher
	ctx := context.Background()

	assert.NoError(t, p.PublishProcessed(ctx, CompletionEvent{DocumentoID: 1}))
	assert.NoError(t, p.PublishFailed(ctx, CompletionEvent{DocumentoID: 1}))
	assert.NotPanics(t, p.Close)
}

func testPublisher(t *testing.T) *CompletionPublisher {
	t.Helper()
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	pub, err := NewCompletionPublisher(config.KafkaConfig{Enabled: true, Brokers: brokers})
	require.NoError(t, err)
	t.Cleanup(pub.Close)
	return pub
}

func TestCompletionPublisher_PublishProcessedAndFailed(t *testing.T) {
	pub := testPublisher(t)
	ctx := context.Background()
	ev := CompletionEvent{DocumentoID: 1, LibraryID: 1, ChaptersCreated: 2, EmbeddingsTotal: 5, EmbeddingsSucceeded: 5, Timestamp: time.Now()}

	require.NoError(t, pub.PublishProcessed(ctx, ev))
	require.NoError(t, pub.PublishFailed(ctx, ev))
}
