// Package analytics records per-document and per-batch ingestion counters
// to ClickHouse for offline observability, supplementing the in-memory
// status tracker which only answers "what's the state right now".
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

// BatchEvent is one embedding-batch outcome recorded during phase 2.3.
type BatchEvent struct {
	DocumentoID int64
	BatchSize   int
	Succeeded   int
	Failed      int
	DurationMs  int64
	At          time.Time
}

// DocumentEvent is one document's terminal ingestion outcome.
type DocumentEvent struct {
	DocumentoID         int64
	LibraryID           int64
	ChaptersCreated     int
	EmbeddingsTotal     int
	EmbeddingsSucceeded int
	EmbeddingsFailed    int
	State               string
	At                  time.Time
}

// Sink writes ingestion analytics events to ClickHouse. A nil *Sink is
// valid and every method becomes a no-op, so callers can wire it
// unconditionally and only pay the cost when cfg.Enabled is true.
type Sink struct {
	conn clickhouse.Conn
}

// NewSink opens a ClickHouse connection and ensures the two analytics
// tables exist. Returns (nil, nil) when analytics is disabled so callers
// can treat the zero value as "no sink".
func NewSink(ctx context.Context, cfg config.ClickHouseConfig) (*Sink, error) {
	if !cfg.Enabled || cfg.DSN == "" {
		return nil, nil
	}

	opts, err := clickhouse.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("analytics: parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("analytics: open clickhouse connection: %w", err)
	}

	s := &Sink{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ingestion_batch_events (
	documento_id Int64,
	batch_size UInt32,
	succeeded UInt32,
	failed UInt32,
	duration_ms Int64,
	at DateTime
) ENGINE = MergeTree ORDER BY (documento_id, at)`); err != nil {
		return fmt.Errorf("analytics: create ingestion_batch_events: %w", err)
	}
	if err := s.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ingestion_document_events (
	documento_id Int64,
	library_id Int64,
	chapters_created UInt32,
	embeddings_total UInt32,
	embeddings_succeeded UInt32,
	embeddings_failed UInt32,
	state String,
	at DateTime
) ENGINE = MergeTree ORDER BY (library_id, at)`); err != nil {
		return fmt.Errorf("analytics: create ingestion_document_events: %w", err)
	}
	return nil
}

// RecordBatch inserts one embedding-batch outcome. Errors are the caller's
// to log; analytics must never fail the ingestion pipeline.
func (s *Sink) RecordBatch(ctx context.Context, e BatchEvent) error {
	if s == nil {
		return nil
	}
	return s.conn.Exec(ctx, `
INSERT INTO ingestion_batch_events (documento_id, batch_size, succeeded, failed, duration_ms, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.DocumentoID, e.BatchSize, e.Succeeded, e.Failed, e.DurationMs, e.At)
}

// RecordDocument inserts one document's terminal outcome.
func (s *Sink) RecordDocument(ctx context.Context, e DocumentEvent) error {
	if s == nil {
		return nil
	}
	return s.conn.Exec(ctx, `
INSERT INTO ingestion_document_events (documento_id, library_id, chapters_created, embeddings_total, embeddings_succeeded, embeddings_failed, state, at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DocumentoID, e.LibraryID, e.ChaptersCreated, e.EmbeddingsTotal, e.EmbeddingsSucceeded, e.EmbeddingsFailed, e.State, e.At)
}

// Close releases the underlying connection.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.conn.Close()
}
