package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/ctxbuild"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/pool"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/registry"
	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

func testService(t *testing.T) (*Service, *postgres.LibraryRepo, int64) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, dbPool, 8))

	libs := postgres.NewLibraryRepo(dbPool)
	docs := postgres.NewDocumentoRepo(dbPool)
	chapters := postgres.NewChapterRepo(dbPool)
	embeddings := postgres.NewEmbeddingRepo(dbPool)

	lib := model.NewLibrary("service-test-library", "")
	require.NoError(t, libs.Create(ctx, lib))

	provider := &stubProvider{dim: 8}
	reg := registry.New()
	reg.Refresh([]llm.Provider{provider})
	llmPool := pool.New([]llm.Provider{provider}, reg, pool.StrategyFailover, 1)
	status := NewStatusTracker(time.Hour)
	t.Cleanup(status.Close)

	cfg := config.IngestionConfig{BatchSize: 10, DefaultChunkSize: 500, DefaultChunkOverlap: 50, OversizeThresholdPct: 0.02}
	defaults := ctxbuild.Defaults{LLMModel: "stub-model", EmbeddingModel: "stub-model"}
	orch := New(libs, docs, chapters, embeddings, llmPool, status, cfg, defaults)
	dup := NewDuplicateDetector(docs)
	svc := NewService(docs, dup, orch)
	return svc, libs, lib.ID
}

func TestService_UploadText_CreatesDocumento(t *testing.T) {
	svc, _, libraryID := testService(t)
	doc, err := svc.UploadText(context.Background(), UploadTextRequest{LibraryID: libraryID, Title: "Doc", Markdown: "Some body text."})
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, "Some body text.", doc.Metadata["markdown"])
}

func TestService_UploadText_DuplicateReturnsExistingAndError(t *testing.T) {
	svc, _, libraryID := testService(t)
	first, err := svc.UploadText(context.Background(), UploadTextRequest{LibraryID: libraryID, Title: "Doc", Markdown: "Repeated body text."})
	require.NoError(t, err)

	second, err := svc.UploadText(context.Background(), UploadTextRequest{LibraryID: libraryID, Title: "Doc 2", Markdown: "Repeated body text."})
	assert.ErrorIs(t, err, ErrDuplicateDocumento)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_UploadURL_FetchesConvertsAndUploads(t *testing.T) {
	svc, _, libraryID := testService(t)
	page := `<html><head><title>Contract Law Overview</title></head><body>
<article>
<h1>Contract Law Overview</h1>
<p>A contract is a legally binding agreement between two or more parties that creates mutual obligations enforceable by law.</p>
<p>The essential elements of a valid contract include offer, acceptance, consideration, and the intention to create legal relations.</p>
<p>Termination of a contract can occur through performance, agreement, breach, or frustration of purpose, among other doctrines.</p>
<p>Remedies for breach of contract typically include damages, specific performance, or rescission of the agreement entirely.</p>
</article>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	doc, err := svc.UploadURL(context.Background(), UploadURLRequest{LibraryID: libraryID, URL: server.URL})
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	markdown, _ := doc.Metadata["markdown"].(string)
	assert.Contains(t, markdown, "contract")
}

func TestService_UploadFile_RejectsOversizedFiles(t *testing.T) {
	svc, _, libraryID := testService(t)
	oversized := make([]byte, maxUploadBytes+1)
	_, err := svc.UploadFile(context.Background(), UploadFileRequest{LibraryID: libraryID, FileBytes: oversized, Filename: "big.txt"})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestService_ProcessAndStatus_RunsIngestionPipeline(t *testing.T) {
	svc, _, libraryID := testService(t)
	doc, err := svc.UploadText(context.Background(), UploadTextRequest{LibraryID: libraryID, Title: "Doc", Markdown: "Body text to be processed."})
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), doc.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Success)

	status, ok := svc.Status(doc.ID)
	require.True(t, ok)
	assert.Equal(t, PhaseCompleted, status.Phase)
}
