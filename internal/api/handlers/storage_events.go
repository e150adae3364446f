package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/pkg/textextract"
)

// StorageEventHandler receives object-finalized notifications from the
// storage collaborator, for clients that upload straight to the bucket
// instead of through POST /documents. The document record must already
// exist; the event only kicks off extraction.
type StorageEventHandler struct {
	svc         *document.Service
	bucket      string
	queueClient queue.Enqueuer
}

func NewStorageEventHandler(svc *document.Service, bucket string, qc queue.Enqueuer) *StorageEventHandler {
	return &StorageEventHandler{svc: svc, bucket: bucket, queueClient: qc}
}

type storageEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

func (h *StorageEventHandler) ObjectFinalized(w http.ResponseWriter, r *http.Request) {
	var ev storageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	if ev.Bucket != "" && ev.Bucket != h.bucket {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "foreign bucket"})
		return
	}

	if !textextract.Supported(ev.ContentType) {
		slog.Info("ignoring unsupported object", "name", ev.Name, "content_type", ev.ContentType)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "unsupported content type"})
		return
	}

	doc, err := h.svc.GetByStoragePath(r.Context(), ev.Name)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			slog.Warn("storage event for unknown object", "name", ev.Name)
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "unknown object"})
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not resolve object")
		return
	}

	if doc.Status != models.DocStatusUploaded {
		// Replayed notification, the document already moved on.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "already processing"})
		return
	}

	if err := h.queueClient.EnqueueDocumentExtract(queue.DocumentExtractPayload{
		DocumentID: doc.ID.String(),
		OwnerID:    doc.OwnerID.String(),
	}); err != nil {
		slog.Error("enqueue extract failed", "document_id", doc.ID, "error", err)
		writeErr(w, http.StatusInternalServerError, "could not enqueue extraction")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "document_id": doc.ID.String()})
}
