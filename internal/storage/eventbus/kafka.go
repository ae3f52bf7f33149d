// Package eventbus publishes ingestion completion notifications so
// downstream systems can react without polling the status tracker. It only
// fires once per terminal state — this is a notification channel, not a
// progress stream.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

const (
	TopicDocumentProcessed = "document.processed"
	TopicDocumentFailed    = "document.failed"
)

// CompletionEvent is published on document.processed or document.failed.
type CompletionEvent struct {
	DocumentoID         int64     `json:"documento_id"`
	LibraryID           int64     `json:"library_id"`
	ChaptersCreated     int       `json:"chapters_created"`
	EmbeddingsTotal     int       `json:"embeddings_total"`
	EmbeddingsSucceeded int       `json:"embeddings_succeeded"`
	EmbeddingsFailed    int       `json:"embeddings_failed"`
	Timestamp           time.Time `json:"timestamp"`
}

// CompletionPublisher publishes ingestion completion events to Kafka. A nil
// *CompletionPublisher is valid and PublishProcessed/PublishFailed become
// no-ops.
type CompletionPublisher struct {
	writer *kafka.Writer
}

// NewCompletionPublisher builds a publisher when enabled, or returns
// (nil, nil) otherwise so callers can wire it unconditionally.
func NewCompletionPublisher(cfg config.KafkaConfig) (*CompletionPublisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Balancer: &kafka.LeastBytes{},
	}
	return &CompletionPublisher{writer: writer}, nil
}

// PublishProcessed announces that a document finished with every vector
// computed.
func (p *CompletionPublisher) PublishProcessed(ctx context.Context, ev CompletionEvent) error {
	return p.publish(ctx, TopicDocumentProcessed, ev)
}

// PublishFailed announces that a document finished with some embeddings
// still missing vectors after best-effort processing.
func (p *CompletionPublisher) PublishFailed(ctx context.Context, ev CompletionEvent) error {
	return p.publish(ctx, TopicDocumentFailed, ev)
}

func (p *CompletionPublisher) publish(ctx context.Context, topic string, ev CompletionEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{Topic: topic, Value: payload, Time: time.Now()}
	return p.writer.WriteMessages(ctx, msg)
}

// Close shuts down the underlying writer.
func (p *CompletionPublisher) Close() {
	if p == nil || p.writer == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		log.Warn().Err(err).Msg("eventbus: kafka writer close failed")
	}
}
