// Package ingestion implements the document ingestion pipeline: the
// overwrite/duplicate pre-checks, the split-and-persist phase that stores
// chapters and then pending (vector-less) embeddings in two separate
// transactions (a failed embedding insert leaves the committed chapters in
// place), and the batched vectorization phase that fills those vectors in
// with per-row fault isolation.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/ctxbuild"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/pool"
	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/splitters"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/analytics"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/eventbus"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// Result is what the orchestrator returns for one document, per the "no
// global retry, callers inspect counts" fault-tolerance contract.
type Result struct {
	DocumentoID         int64
	Plan                Plan
	ChaptersCreated      int
	EmbeddingsTotal      int
	EmbeddingsSucceeded  int
	EmbeddingsFailed     int
	Success              bool
}

// Orchestrator runs the three-phase ingestion pipeline for a single
// documento at a time; callers fan out across documents with their own
// bounded worker pool.
type Orchestrator struct {
	libraries   *postgres.LibraryRepo
	documentos  *postgres.DocumentoRepo
	chapters    *postgres.ChapterRepo
	embeddings  *postgres.EmbeddingRepo
	llmPool     *pool.Pool
	overwrite   *OverwriteController
	status      *StatusTracker
	cfg         config.IngestionConfig
	defaults    ctxbuild.Defaults

	analytics *analytics.Sink
	events    *eventbus.CompletionPublisher
	vectorMirror vectorMirror
}

// vectorMirror is satisfied by *vectoralt.Store. A nil vectorMirror leaves
// pgvector as the only copy of a computed embedding vector.
type vectorMirror interface {
	Upsert(ctx context.Context, libraryID, embeddingID, chapterID, documentoID int64, text string, vector []float32) error
}

// OrchestratorOption configures optional Orchestrator collaborators.
type OrchestratorOption func(*Orchestrator)

// WithAnalytics records per-batch and per-document counters to ClickHouse.
// A nil sink is accepted and simply keeps analytics disabled.
func WithAnalytics(sink *analytics.Sink) OrchestratorOption {
	return func(o *Orchestrator) { o.analytics = sink }
}

// WithEvents publishes document.processed/document.failed notifications.
// A nil publisher is accepted and simply keeps events disabled.
func WithEvents(pub *eventbus.CompletionPublisher) OrchestratorOption {
	return func(o *Orchestrator) { o.events = pub }
}

// WithVectorMirror additionally writes every computed vector to an
// alternate vector backend (Qdrant via vectoralt.Store) alongside the
// pgvector column, so retrieval.Engine can be pointed at either one.
func WithVectorMirror(mirror vectorMirror) OrchestratorOption {
	return func(o *Orchestrator) { o.vectorMirror = mirror }
}

// New builds an Orchestrator wired to the repositories, provider pool, and
// status tracker it needs.
func New(
	libraries *postgres.LibraryRepo,
	documentos *postgres.DocumentoRepo,
	chapters *postgres.ChapterRepo,
	embeddings *postgres.EmbeddingRepo,
	llmPool *pool.Pool,
	status *StatusTracker,
	cfg config.IngestionConfig,
	defaults ctxbuild.Defaults,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		libraries:  libraries,
		documentos: documentos,
		chapters:   chapters,
		embeddings: embeddings,
		llmPool:    llmPool,
		overwrite:  NewOverwriteController(chapters, embeddings),
		status:     status,
		cfg:        cfg,
		defaults:   defaults,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest runs phases 2.0 through 2.3 for an already-persisted Documento
// whose Metadata["markdown"] holds the converted document text.
func (o *Orchestrator) Ingest(ctx context.Context, documentoID int64, markdown string, overwrite bool) (Result, error) {
	o.status.Start(documentoID)
	res := Result{DocumentoID: documentoID}

	plan, err := o.overwrite.Decide(ctx, documentoID, overwrite)
	if err != nil {
		o.fail(documentoID, err)
		return res, err
	}
	res.Plan = plan
	if plan == PlanAlreadyProcessed {
		o.status.Update(documentoID, func(r *ProgressRecord) {
			r.Phase = PhaseCompleted
			r.CompletedAt = time.Now()
		})
		res.Success = true
		return res, nil
	}
	if err := o.overwrite.Apply(ctx, documentoID, plan); err != nil {
		o.fail(documentoID, err)
		return res, err
	}

	doc, err := o.documentos.GetByID(ctx, documentoID)
	if err != nil {
		o.fail(documentoID, err)
		return res, fmt.Errorf("ingestion: load documento %d: %w", documentoID, err)
	}
	lib, err := o.libraries.GetByID(ctx, doc.LibraryID)
	if err != nil {
		o.fail(documentoID, err)
		return res, fmt.Errorf("ingestion: load library %d: %w", doc.LibraryID, err)
	}

	// Phase 2.1: resolve contexts before any splitting, since oversize
	// handling in 2.3 depends on the embedding model's token cap.
	llmCtx := ctxbuild.ResolveLLMContext("", lib.DefaultLLMModel, o.defaults)
	embCtx := ctxbuild.ResolveEmbeddingContext("", lib.DefaultEmbedModel, o.defaults)

	if plan == PlanProceedNormal || plan == PlanDestructiveReingest {
		o.status.Update(documentoID, func(r *ProgressRecord) { r.Phase = PhaseSplitting })
		created, err := o.splitAndPersist(ctx, doc, markdown, llmCtx, embCtx)
		if err != nil {
			o.fail(documentoID, err)
			return res, err
		}
		res.ChaptersCreated = created
		o.status.Update(documentoID, func(r *ProgressRecord) { r.ChaptersCount = created })
	}

	o.status.Update(documentoID, func(r *ProgressRecord) { r.Phase = PhaseEmbedding })
	succeeded, failed, err := o.computeVectors(ctx, documentoID, doc.LibraryID, llmCtx, embCtx)
	res.EmbeddingsSucceeded = succeeded
	res.EmbeddingsFailed = failed
	res.EmbeddingsTotal = succeeded + failed
	if err != nil {
		o.fail(documentoID, err)
		return res, err
	}

	finalState := model.StateCompleted
	if failed > 0 {
		finalState = model.StateFailed
	}
	if err := o.documentos.UpdateState(ctx, documentoID, finalState); err != nil {
		log.Warn().Err(err).Int64("documento_id", documentoID).Msg("ingestion: failed to update documento state")
	}

	o.status.Update(documentoID, func(r *ProgressRecord) {
		r.Phase = PhaseCompleted
		r.EmbeddingsTotal = res.EmbeddingsTotal
		r.EmbeddingsProcessed = succeeded
		r.EmbeddingsFailed = failed
		r.CompletedAt = time.Now()
	})

	o.notifyCompletion(ctx, doc.LibraryID, res, finalState)

	// success=true even with partial failures; callers inspect counts, per
	// the no-global-retry fault tolerance contract.
	res.Success = true
	return res, nil
}

// notifyCompletion reports the terminal outcome to the analytics sink and
// event bus. Both are best-effort: a failure here is logged, never
// propagated, since neither is part of the ingestion contract.
func (o *Orchestrator) notifyCompletion(ctx context.Context, libraryID int64, res Result, state model.ProcessingState) {
	if err := o.analytics.RecordDocument(ctx, analyticsDocumentEvent(libraryID, res, state)); err != nil {
		log.Warn().Err(err).Int64("documento_id", res.DocumentoID).Msg("ingestion: analytics record failed")
	}

	ev := eventbus.CompletionEvent{
		DocumentoID:         res.DocumentoID,
		LibraryID:           libraryID,
		ChaptersCreated:     res.ChaptersCreated,
		EmbeddingsTotal:     res.EmbeddingsTotal,
		EmbeddingsSucceeded: res.EmbeddingsSucceeded,
		EmbeddingsFailed:    res.EmbeddingsFailed,
		Timestamp:           time.Now(),
	}
	var err error
	if state == model.StateFailed {
		err = o.events.PublishFailed(ctx, ev)
	} else {
		err = o.events.PublishProcessed(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Int64("documento_id", res.DocumentoID).Msg("ingestion: completion event publish failed")
	}
}

func analyticsDocumentEvent(libraryID int64, res Result, state model.ProcessingState) analytics.DocumentEvent {
	return analytics.DocumentEvent{
		DocumentoID:         res.DocumentoID,
		LibraryID:           libraryID,
		ChaptersCreated:     res.ChaptersCreated,
		EmbeddingsTotal:     res.EmbeddingsTotal,
		EmbeddingsSucceeded: res.EmbeddingsSucceeded,
		EmbeddingsFailed:    res.EmbeddingsFailed,
		State:               string(state),
		At:                  time.Now(),
	}
}

func (o *Orchestrator) fail(documentoID int64, err error) {
	o.status.Update(documentoID, func(r *ProgressRecord) {
		r.Phase = PhaseFailed
		r.ErrorMessage = err.Error()
		r.CompletedAt = time.Now()
	})
}

// splitAndPersist implements phase 2.2: route the document to a chapter
// splitter, fan each chapter out into one or more pending (vector-less)
// DocEmbedding rows, and batch-insert both in their own transactions.
func (o *Orchestrator) splitAndPersist(ctx context.Context, doc *model.Documento, markdown string, llmCtx ctxbuild.LLMContext, embCtx ctxbuild.EmbeddingContext) (int, error) {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = splitters.DetectContentType(markdown)
	}
	splitter, err := splitters.SplitterFactory(contentType)
	if err != nil {
		return 0, fmt.Errorf("ingestion: splitter factory: %w", err)
	}
	chapterSplits, err := splitter.SplitChapters(markdown)
	if err != nil {
		return 0, fmt.Errorf("ingestion: split chapters: %w", err)
	}

	chunkSplitter, err := splitters.NewChunkSplitter(o.cfg.DefaultChunkSize, o.cfg.DefaultChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("ingestion: build chunk splitter: %w", err)
	}

	chapters := make([]*model.Chapter, 0, len(chapterSplits))
	for _, cs := range chapterSplits {
		chapters = append(chapters, &model.Chapter{
			DocumentoID: doc.ID,
			Ordinal:     cs.Ordinal,
			Title:       cs.Title,
			Content:     cs.Content,
			Metadata:    map[string]any{},
		})
	}
	if err := o.chapters.CreateBatch(ctx, chapters); err != nil {
		return 0, fmt.Errorf("ingestion: persist chapters: %w", err)
	}

	var pending []*model.DocEmbedding
	for _, ch := range chapters {
		rows, err := o.buildPendingEmbeddings(ctx, ch, doc.LibraryID, llmCtx, chunkSplitter)
		if err != nil {
			return len(chapters), fmt.Errorf("ingestion: build embeddings for chapter %d: %w", ch.Ordinal, err)
		}
		pending = append(pending, rows...)
	}
	if len(pending) > 0 {
		if err := o.embeddings.CreateBatchPending(ctx, pending); err != nil {
			return len(chapters), fmt.Errorf("ingestion: persist pending embeddings: %w", err)
		}
	}
	return len(chapters), nil
}

// buildPendingEmbeddings implements the chapter-to-DocEmbedding fanout rule
// from phase 2.2: one whole-chapter embedding for small chapters, otherwise
// an optional summary plus N chunk embeddings.
func (o *Orchestrator) buildPendingEmbeddings(ctx context.Context, ch *model.Chapter, libraryID int64, llmCtx ctxbuild.LLMContext, chunkSplitter *splitters.ChunkSplitter) ([]*model.DocEmbedding, error) {
	tokens, err := o.llmPool.TokenCount(llmCtx.Model, ch.Content)
	if err != nil {
		return nil, fmt.Errorf("token count: %w", err)
	}

	if tokens <= idealChunkSizeTokens {
		return []*model.DocEmbedding{{
			ChapterID:   ch.ID,
			DocumentoID: ch.DocumentoID,
			LibraryID:   libraryID,
			Tipo:        model.TipoEmbeddingChunk,
			Ordinal:     0,
			Text:        ch.Content,
			Metadata:    map[string]any{},
		}}, nil
	}

	var rows []*model.DocEmbedding
	if tokens > summaryThresholdTokens {
		summary, err := o.llmPool.Completion(ctx, llm.CompletionRequest{
			Model:     llmCtx.Model,
			System:    "Summarize the following text concisely, preserving key facts.",
			Prompt:    ch.Content,
			MaxTokens: summaryMaxTokens,
		})
		if err != nil {
			log.Warn().Err(err).Int("chapter_ordinal", ch.Ordinal).Msg("ingestion: summary generation failed, skipping summary embedding")
		} else {
			rows = append(rows, &model.DocEmbedding{
				ChapterID:   ch.ID,
				DocumentoID: ch.DocumentoID,
				LibraryID:   libraryID,
				Tipo:        model.TipoEmbeddingSummary,
				Ordinal:     -1,
				Text:        summary.Text,
				Metadata:    map[string]any{},
			})
		}
	}

	for i, chunk := range chunkSplitter.Split(ch.Content) {
		rows = append(rows, &model.DocEmbedding{
			ChapterID:   ch.ID,
			DocumentoID: ch.DocumentoID,
			LibraryID:   libraryID,
			Tipo:        model.TipoEmbeddingChunk,
			Ordinal:     i,
			Text:        chunk,
			Metadata:    map[string]any{},
		})
	}
	return rows, nil
}

// computeVectors implements phase 2.3: load embeddings still awaiting a
// vector, batch them, and dispatch one embeddings call per batch with
// per-row UPDATE isolation so one bad row or batch never aborts the rest.
func (o *Orchestrator) computeVectors(ctx context.Context, documentoID, libraryID int64, llmCtx ctxbuild.LLMContext, embCtx ctxbuild.EmbeddingContext) (succeeded, failed int, err error) {
	pending, err := o.embeddings.PendingForDocumento(ctx, documentoID)
	if err != nil {
		return 0, 0, fmt.Errorf("ingestion: load pending embeddings: %w", err)
	}

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(pending); start += batchSize {
		batchStartedAt := time.Now()
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = o.prepareForEmbedding(ctx, e, embCtx, llmCtx)
		}

		vectors, err := o.llmPool.Embeddings(ctx, embCtx.Model, texts, llm.EmbeddingOperationDocument)
		if err != nil {
			log.Error().Err(err).Int("batch_start", start).Int("batch_size", len(batch)).Msg("ingestion: embedding batch failed, continuing with next batch")
			failed += len(batch)
			o.recordBatch(ctx, documentoID, len(batch), 0, len(batch), batchStartedAt)
			continue
		}
		if len(vectors) != len(batch) {
			log.Error().Int("expected", len(batch)).Int("got", len(vectors)).Msg("ingestion: embedding batch returned mismatched vector count")
			failed += len(batch)
			o.recordBatch(ctx, documentoID, len(batch), 0, len(batch), batchStartedAt)
			continue
		}

		batchSucceeded, batchFailed := 0, 0
		for i, e := range batch {
			if err := o.embeddings.UpdateVector(ctx, e.ID, vectors[i], e.Operation); err != nil {
				log.Error().Err(err).Int64("embedding_id", e.ID).Msg("ingestion: vector update failed")
				batchFailed++
				continue
			}
			if o.vectorMirror != nil {
				if err := o.vectorMirror.Upsert(ctx, libraryID, e.ID, e.ChapterID, documentoID, texts[i], vectors[i]); err != nil {
					log.Warn().Err(err).Int64("embedding_id", e.ID).Msg("ingestion: vector mirror upsert failed")
				}
			}
			batchSucceeded++
		}
		succeeded += batchSucceeded
		failed += batchFailed
		o.recordBatch(ctx, documentoID, len(batch), batchSucceeded, batchFailed, batchStartedAt)

		o.status.Update(documentoID, func(r *ProgressRecord) {
			r.EmbeddingsProcessed = succeeded
			r.EmbeddingsFailed = failed
		})
	}

	return succeeded, failed, nil
}

func (o *Orchestrator) recordBatch(ctx context.Context, documentoID int64, batchSize, succeeded, failed int, startedAt time.Time) {
	if err := o.analytics.RecordBatch(ctx, analytics.BatchEvent{
		DocumentoID: documentoID,
		BatchSize:   batchSize,
		Succeeded:   succeeded,
		Failed:      failed,
		DurationMs:  time.Since(startedAt).Milliseconds(),
		At:          time.Now(),
	}); err != nil {
		log.Warn().Err(err).Int64("documento_id", documentoID).Msg("ingestion: analytics batch record failed")
	}
}

// prepareForEmbedding implements the per-text oversize handling in phase
// 2.3: pass through texts within the model's context length, summarize
// texts far over it, and cheaply truncate texts only slightly over it.
func (o *Orchestrator) prepareForEmbedding(ctx context.Context, e *model.DocEmbedding, embCtx ctxbuild.EmbeddingContext, llmCtx ctxbuild.LLMContext) string {
	e.Operation = model.EmbeddingOperationDirect
	cap := embCtx.ContextLength
	if cap <= 0 {
		return e.Text
	}
	tokens, err := o.llmPool.TokenCount(embCtx.Model, e.Text)
	if err != nil || tokens <= 0 || tokens <= cap {
		return e.Text
	}

	excessPercent := float64(tokens-cap) * 100 / float64(tokens)
	thresholdPercent := o.cfg.OversizeThresholdPct * 100
	if thresholdPercent <= 0 {
		thresholdPercent = 2.0
	}

	if excessPercent > thresholdPercent {
		resp, err := o.llmPool.Completion(ctx, llm.CompletionRequest{
			Model:     llmCtx.Model,
			System:    "Condense the following text so it fits within a strict size limit while preserving meaning.",
			Prompt:    e.Text,
			MaxTokens: cap,
		})
		if err != nil {
			log.Warn().Err(err).Int64("embedding_id", e.ID).Msg("ingestion: condensation failed, falling back to truncation")
		} else {
			if e.Metadata == nil {
				e.Metadata = map[string]any{}
			}
			e.Metadata["resumo"] = resp.Text
			e.Operation = model.EmbeddingOperationSummarized
			return resp.Text
		}
	}

	limit := cap * 4
	if limit > 0 && limit < len(e.Text) {
		e.Operation = model.EmbeddingOperationTruncated
		return truncateRunes(e.Text, limit)
	}
	return e.Text
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= limit {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
