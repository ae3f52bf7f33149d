// Package vectoralt provides an optional Qdrant-backed alternative to the
// Postgres/pgvector semantic search path, selected by
// config.VectorBackendConfig.Backend == "qdrant". Full-text search always
// stays on Postgres: hybrid retrieval only swaps the vector leg.
package vectoralt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// payloadChapterID, payloadDocumentoID, payloadText, and payloadLibraryID
// name the Qdrant point payload fields a Store round-trips so SemanticSearch
// can rebuild a postgres.ScoredEmbedding without a second database lookup.
const (
	payloadChapterID   = "chapter_id"
	payloadDocumentoID = "documento_id"
	payloadText        = "text"
	payloadLibraryID   = "library_id"
)

// Store is a Qdrant-backed mirror of doc_embedding rows, implementing the
// same semantic search shape as postgres.SearchRepo so retrieval.Engine can
// swap backends without changing its fusion logic.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// New connects to Qdrant at dsn and ensures collection exists with the
// given vector dimension and distance metric (cosine, l2, or ip).
//
// The Go client speaks Qdrant's gRPC API, which defaults to port 6334. An
// API key may be passed as a query parameter: "http://host:6334?api_key=...".
func New(ctx context.Context, dsn, collection string, dimension int, metric string) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectoralt: collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vectoralt: dimension must be > 0")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectoralt: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectoralt: invalid port in dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectoralt: create client: %w", err)
	}
	s := &Store{client: client, collection: collection, dimension: dimension}
	if err := s.ensureCollection(ctx, strings.ToLower(strings.TrimSpace(metric))); err != nil {
		client.Close()
		return nil, fmt.Errorf("vectoralt: ensure collection: %w", err)
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, metric string) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: distance,
		}),
	})
}

// pointID derives a deterministic Qdrant UUID from a doc_embedding row's
// integer primary key, since Qdrant only accepts UUIDs or positive ints as
// point IDs and embeddingID alone collides across libraries if reused raw.
func pointID(embeddingID int64) *qdrant.PointId {
	name := strconv.FormatInt(embeddingID, 10)
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())
}

// Upsert mirrors a computed embedding vector into Qdrant so it can serve
// SemanticSearch in place of the pgvector column.
func (s *Store) Upsert(ctx context.Context, libraryID, embeddingID, chapterID, documentoID int64, text string, vector []float32) error {
	payload := qdrant.NewValueMap(map[string]any{
		payloadLibraryID:   strconv.FormatInt(libraryID, 10),
		payloadChapterID:   chapterID,
		payloadDocumentoID: documentoID,
		payloadText:        text,
	})
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID(embeddingID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("vectoralt: upsert point %d: %w", embeddingID, err)
	}
	return nil
}

// Delete removes a mirrored point, e.g. when the destructive-reingest path
// deletes the source chapter's embeddings.
func (s *Store) Delete(ctx context.Context, embeddingID int64) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointID(embeddingID)),
	})
	if err != nil {
		return fmt.Errorf("vectoralt: delete point %d: %w", embeddingID, err)
	}
	return nil
}

// SemanticSearch satisfies the same shape as postgres.SearchRepo.SemanticSearch
// so retrieval.Engine can use either one behind a single interface.
func (s *Store) SemanticSearch(ctx context.Context, libraryID int64, queryVector []float32, limit int) ([]postgres.ScoredEmbedding, error) {
	if limit <= 0 {
		limit = 20
	}
	vec := make([]float32, len(queryVector))
	copy(vec, queryVector)
	qLimit := uint64(limit)
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadLibraryID, strconv.FormatInt(libraryID, 10))},
	}
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &qLimit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectoralt: semantic search: %w", err)
	}
	out := make([]postgres.ScoredEmbedding, 0, len(hits))
	for _, hit := range hits {
		if hit.Payload == nil {
			continue
		}
		out = append(out, postgres.ScoredEmbedding{
			ChapterID:   hit.Payload[payloadChapterID].GetIntegerValue(),
			DocumentoID: hit.Payload[payloadDocumentoID].GetIntegerValue(),
			Text:        hit.Payload[payloadText].GetStringValue(),
			Score:       float64(hit.Score),
		})
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
