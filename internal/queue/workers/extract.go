package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/internal/storage"
)

// ExtractWorker runs the uploaded -> extracting -> extracted leg: it pulls
// the object out of storage, extracts its text, and hands the document to
// the ingestion queue.
type ExtractWorker struct {
	docSvc      *document.Service
	storage     storage.Storage
	bucket      string
	extractor   document.TextExtractor
	queueClient queue.Enqueuer
}

func NewExtractWorker(docSvc *document.Service, store storage.Storage, bucket string, qc queue.Enqueuer) *ExtractWorker {
	return &ExtractWorker{
		docSvc:      docSvc,
		storage:     store,
		bucket:      bucket,
		extractor:   document.NewTextExtractor(),
		queueClient: qc,
	}
}

func (w *ExtractWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	ok, err := w.docSvc.Transition(ctx, docID, models.DocStatusUploaded, models.DocStatusExtracting)
	if err != nil {
		return fmt.Errorf("enter extracting: %w", err)
	}
	if !ok {
		// Duplicate delivery, the document already moved on.
		slog.Info("extraction skipped, document not in uploaded state", "document_id", docID)
		return nil
	}

	slog.Info("extracting document", "document_id", docID)

	doc, err := w.docSvc.GetByID(ctx, docID)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("get document: %w", err)
	}

	reader, err := w.storage.Download(ctx, w.bucket, doc.StoragePath)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("download object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("read object: %w", err)
	}

	result, err := w.extractor.Extract(ctx, document.ReaderAtFromBytes(data), int64(len(data)), doc.ContentType)
	if err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("extract text: %w", err)
	}

	if _, err := w.docSvc.CompleteExtraction(ctx, docID, result.Content); err != nil {
		w.fail(ctx, docID)
		return fmt.Errorf("store extracted text: %w", err)
	}

	if err := w.queueClient.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocumentID: docID.String(),
		OwnerID:    payload.OwnerID,
	}); err != nil {
		return fmt.Errorf("enqueue ingest: %w", err)
	}

	slog.Info("document extracted", "document_id", docID, "pages", result.Pages, "chars", len(result.Content))
	return nil
}

func (w *ExtractWorker) fail(ctx context.Context, docID uuid.UUID) {
	if err := w.docSvc.MarkError(ctx, docID); err != nil {
		slog.Error("marking document failed", "document_id", docID, "error", err)
	}
}
