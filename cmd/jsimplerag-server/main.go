// Command jsimplerag-server wires the ingestion and retrieval engine into
// an HTTP service: upload/process/status endpoints backed by the
// Orchestrator, and a search endpoint backed by the hybrid retrieval
// Engine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
	"github.com/AlessandroBorges/jsimplerag-go/internal/ingestion"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/anthropic"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/ctxbuild"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/google"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/openai"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/pool"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/registry"
	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/objectstore"
	"github.com/AlessandroBorges/jsimplerag-go/internal/observability"
	"github.com/AlessandroBorges/jsimplerag-go/internal/retrieval"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/analytics"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/cache"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/eventbus"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/vectoralt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	observability.InitLogger("jsimplerag.log", "info", false)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("jsimplerag.log", cfg.LogLevel, cfg.OTel.Enabled)

	shutdown, err := observability.InitOTel(context.Background(), cfg.OTel)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without telemetry")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	ctx := context.Background()
	dbPool, err := connectPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer dbPool.Close()
	if err := postgres.EnsureSchema(ctx, dbPool, cfg.Defaults.EmbeddingDim); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	libraries := postgres.NewLibraryRepo(dbPool)
	documentos := postgres.NewDocumentoRepo(dbPool)
	chapters := postgres.NewChapterRepo(dbPool)
	embeddings := postgres.NewEmbeddingRepo(dbPool)
	search := postgres.NewSearchRepo(dbPool)

	httpClient := observability.NewHTTPClient(nil)
	providers, err := buildProviders(ctx, cfg.Providers, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build LLM providers")
	}

	reg := registry.New()
	reg.Refresh(providers)

	queryCache, err := cache.NewClient(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis cache unavailable, continuing without it")
		queryCache = nil
	}
	if queryCache != nil {
		defer queryCache.Close()
		publishRegistrySnapshot(ctx, queryCache, providers)
	}

	llmPool := pool.New(providers, reg, pool.Strategy(cfg.Pool.Strategy), cfg.Pool.MaxRetries)

	defaults := ctxbuild.Defaults{
		LLMModel:            cfg.Defaults.LLMModel,
		LLMTemperature:      cfg.Defaults.LLMTemperature,
		LLMMaxTokens:        cfg.Defaults.LLMMaxTokens,
		EmbeddingModel:      cfg.Defaults.EmbeddingModel,
		EmbeddingContextLen: cfg.Defaults.EmbeddingContextLen,
		EmbeddingDim:        cfg.Defaults.EmbeddingDim,
	}

	status := ingestion.NewStatusTracker(time.Duration(cfg.Ingestion.StatusTTLSeconds) * time.Second)

	orchOpts := []ingestion.OrchestratorOption{}
	if cfg.ClickHouse.Enabled {
		sink, err := analytics.NewSink(ctx, cfg.ClickHouse)
		if err != nil {
			log.Warn().Err(err).Msg("clickhouse analytics sink unavailable, continuing without it")
		} else if sink != nil {
			orchOpts = append(orchOpts, ingestion.WithAnalytics(sink))
		}
	}
	if cfg.Kafka.Enabled {
		pub, err := eventbus.NewCompletionPublisher(cfg.Kafka)
		if err != nil {
			log.Warn().Err(err).Msg("kafka completion publisher unavailable, continuing without it")
		} else if pub != nil {
			defer pub.Close()
			orchOpts = append(orchOpts, ingestion.WithEvents(pub))
		}
	}

	var altVector *vectoralt.Store
	if cfg.Vector.Backend == "qdrant" {
		altVector, err = vectoralt.New(ctx, cfg.Vector.QdrantAddr, cfg.Vector.Collection, cfg.Defaults.EmbeddingDim, cfg.Vector.Metric)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to qdrant")
		}
		defer altVector.Close()
		orchOpts = append(orchOpts, ingestion.WithVectorMirror(altVector))
	}

	orch := ingestion.New(libraries, documentos, chapters, embeddings, llmPool, status, cfg.Ingestion, defaults, orchOpts...)
	duplicate := ingestion.NewDuplicateDetector(documentos)

	svcOpts := []ingestion.Option{ingestion.WithHTTPClient(httpClient)}
	if cfg.S3.Enabled {
		objStore, err := objectstore.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("s3 original-bytes retention unavailable, continuing without it")
		} else {
			svcOpts = append(svcOpts, ingestion.WithOriginalStore(ingestion.NewOriginalStore(objStore)))
		}
	}
	svc := ingestion.NewService(documentos, duplicate, orch, svcOpts...)

	var vectorBackend interface {
		SemanticSearch(ctx context.Context, libraryID int64, queryVector []float32, limit int) ([]postgres.ScoredEmbedding, error)
	}
	if altVector != nil {
		vectorBackend = altVector
	}
	engine := retrieval.New(search, libraries, llmPool, queryCache, cfg.Defaults.EmbeddingModel, cfg.Retrieval.RRFConstant, vectorBackend)

	srv := newServer(svc, engine, cfg)
	log.Info().Str("addr", cfg.HTTPAddr).Msg("jsimplerag-server listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, srv); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return p, nil
}

func buildProviders(ctx context.Context, cfgs []config.ProviderConfig, httpClient *http.Client) ([]llm.Provider, error) {
	providers := make([]llm.Provider, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Kind {
		case "openai":
			providers = append(providers, openai.New(openai.Config{Name: c.Name, BaseURL: c.BaseURL, APIKey: c.APIKey, Models: c.Models}, httpClient))
		case "anthropic":
			providers = append(providers, anthropic.New(anthropic.Config{Name: c.Name, BaseURL: c.BaseURL, APIKey: c.APIKey, Models: c.Models}, httpClient))
		case "google":
			client, err := google.New(ctx, google.Config{Name: c.Name, APIKey: c.APIKey, Models: c.Models}, httpClient)
			if err != nil {
				return nil, fmt.Errorf("build google provider %q: %w", c.Name, err)
			}
			providers = append(providers, client)
		default:
			return nil, fmt.Errorf("unknown provider kind %q for %q", c.Kind, c.Name)
		}
	}
	return providers, nil
}

// publishRegistrySnapshot mirrors model-name -> provider-name into Redis so
// other replicas' registries converge without sharing provider objects.
func publishRegistrySnapshot(ctx context.Context, c *cache.Client, providers []llm.Provider) {
	mapping := make(map[string]string)
	for _, p := range providers {
		for _, m := range p.Models() {
			mapping[m] = p.Name()
		}
	}
	if len(mapping) == 0 {
		return
	}
	if err := c.PublishRegistry(ctx, mapping); err != nil {
		log.Warn().Err(err).Msg("failed to publish registry snapshot to redis")
	}
}

func newServer(svc *ingestion.Service, engine *retrieval.Engine, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/v1/documentos/text", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			LibraryID   int64          `json:"library_id"`
			Title       string         `json:"title"`
			Markdown    string         `json:"markdown"`
			ContentType string         `json:"content_type"`
			Metadata    map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		contentType := model.ContentType(req.ContentType)
		if contentType == "" {
			contentType = model.ContentTypeGeneric
		}
		doc, err := svc.UploadText(r.Context(), ingestion.UploadTextRequest{
			LibraryID: req.LibraryID, Title: req.Title, Markdown: req.Markdown,
			Metadata: req.Metadata, ContentType: contentType,
		})
		writeDocumento(w, doc, err)
	})

	mux.HandleFunc("/v1/documentos/url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			LibraryID int64          `json:"library_id"`
			URL       string         `json:"url"`
			Title     string         `json:"title"`
			Metadata  map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		doc, err := svc.UploadURL(r.Context(), ingestion.UploadURLRequest{
			LibraryID: req.LibraryID, URL: req.URL, Title: req.Title, Metadata: req.Metadata,
		})
		writeDocumento(w, doc, err)
	})

	mux.HandleFunc("/v1/documentos/file", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		libraryID, _ := strconv.ParseInt(r.FormValue("library_id"), 10, 64)
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		buf := make([]byte, header.Size)
		if _, err := file.Read(buf); err != nil {
			http.Error(w, "failed to read file", http.StatusBadRequest)
			return
		}
		doc, err := svc.UploadFile(r.Context(), ingestion.UploadFileRequest{
			LibraryID: libraryID, FileBytes: buf, Filename: header.Filename, Title: r.FormValue("title"),
		})
		writeDocumento(w, doc, err)
	})

	mux.HandleFunc("/v1/documentos/process", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		documentID, _ := strconv.ParseInt(r.URL.Query().Get("documento_id"), 10, 64)
		overwrite := r.URL.Query().Get("overwrite") == "true"
		result, err := svc.Process(r.Context(), documentID, overwrite)
		if err != nil {
			log.Error().Err(err).Int64("documento_id", documentID).Msg("process failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, result)
	})

	mux.HandleFunc("/v1/documentos/status", func(w http.ResponseWriter, r *http.Request) {
		documentID, _ := strconv.ParseInt(r.URL.Query().Get("documento_id"), 10, 64)
		record, ok := svc.Status(documentID)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, record)
	})

	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		libraryID, _ := strconv.ParseInt(r.URL.Query().Get("library_id"), 10, 64)
		query := r.URL.Query().Get("q")
		limit := cfg.Retrieval.MaxResultsDefault
		if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
			limit = l
		}

		var (
			results []retrieval.Result
			err     error
		)
		switch r.URL.Query().Get("mode") {
		case "semantic":
			results, err = engine.SemanticOnly(r.Context(), libraryID, query, limit)
		case "textual":
			results, err = engine.TextualOnly(r.Context(), libraryID, query, limit)
		default:
			results, err = engine.Search(r.Context(), libraryID, query, limit)
		}
		if err != nil {
			log.Error().Err(err).Int64("library_id", libraryID).Msg("search failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	})

	return mux
}

func writeDocumento(w http.ResponseWriter, doc *model.Documento, err error) {
	if err != nil {
		if err == ingestion.ErrDuplicateDocumento {
			w.WriteHeader(http.StatusConflict)
			writeJSON(w, doc)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, doc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
