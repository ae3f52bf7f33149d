package ingestion

import (
	"context"
	"fmt"

	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// Plan is the decision the overwrite controller makes for a documento
// before ingestion proceeds.
type Plan string

const (
	// PlanProceedNormal means no chapters exist yet; run the full pipeline.
	PlanProceedNormal Plan = "PROCEED_NORMAL"
	// PlanResumeOnly means chapters exist with some NULL vectors; skip
	// splitting and only recompute the missing vectors.
	PlanResumeOnly Plan = "RESUME_ONLY"
	// PlanAlreadyProcessed means every vector is present and overwrite was
	// not requested; this is a no-op.
	PlanAlreadyProcessed Plan = "ALREADY_PROCESSED"
	// PlanDestructiveReingest means existing chapters must be deleted
	// before a full reingest.
	PlanDestructiveReingest Plan = "DESTRUCTIVE_REINGEST"
)

// OverwriteController implements phase 2.0: deciding, from the documento's
// current persisted state and the caller's overwrite flag, whether to run
// a normal ingest, resume a partial one, skip entirely, or wipe and redo.
type OverwriteController struct {
	chapters   *postgres.ChapterRepo
	embeddings *postgres.EmbeddingRepo
}

func NewOverwriteController(chapters *postgres.ChapterRepo, embeddings *postgres.EmbeddingRepo) *OverwriteController {
	return &OverwriteController{chapters: chapters, embeddings: embeddings}
}

// Decide inspects documentoID's chapters and pending embeddings and returns
// the plan to execute, per the overwrite truth table.
func (c *OverwriteController) Decide(ctx context.Context, documentoID int64, overwrite bool) (Plan, error) {
	chapters, err := c.chapters.ListByDocumento(ctx, documentoID)
	if err != nil {
		return "", fmt.Errorf("ingestion: overwrite controller: list chapters: %w", err)
	}
	if len(chapters) == 0 {
		return PlanProceedNormal, nil
	}
	if overwrite {
		return PlanDestructiveReingest, nil
	}

	pending, err := c.embeddings.PendingForDocumento(ctx, documentoID)
	if err != nil {
		return "", fmt.Errorf("ingestion: overwrite controller: list pending embeddings: %w", err)
	}
	if len(pending) > 0 {
		return PlanResumeOnly, nil
	}
	return PlanAlreadyProcessed, nil
}

// Apply executes a PlanDestructiveReingest decision, deleting all chapters
// (and, via CASCADE, their doc_embeddings) while preserving the documento
// row. Other plans require no action here.
func (c *OverwriteController) Apply(ctx context.Context, documentoID int64, plan Plan) error {
	if plan != PlanDestructiveReingest {
		return nil
	}
	if err := c.chapters.DeleteByDocumento(ctx, documentoID); err != nil {
		return fmt.Errorf("ingestion: overwrite controller: delete chapters: %w", err)
	}
	return nil
}
