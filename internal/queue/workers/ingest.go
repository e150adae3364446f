package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/internal/rag"
)

// IngestWorker runs the extracted -> indexing -> indexed leg through the
// ingestion pipeline.
type IngestWorker struct {
	docSvc   *document.Service
	pipeline *rag.Pipeline
}

func NewIngestWorker(docSvc *document.Service, pipeline *rag.Pipeline) *IngestWorker {
	return &IngestWorker{
		docSvc:   docSvc,
		pipeline: pipeline,
	}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner ID: %w", err)
	}

	doc, err := w.docSvc.GetByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	stats, err := w.pipeline.Ingest(ctx, docID, ownerID, doc.ExtractedText)
	if err != nil {
		if markErr := w.docSvc.MarkError(ctx, docID); markErr != nil {
			slog.Error("marking document failed", "document_id", docID, "error", markErr)
		}
		return fmt.Errorf("ingest document: %w", err)
	}
	if stats.Skipped {
		return nil
	}

	slog.Info("document ingested",
		"document_id", docID,
		"chunks_total", stats.ChunksTotal,
		"chunks_indexed", stats.ChunksIndexed,
		"batches_failed", stats.BatchesFailed)
	return nil
}
