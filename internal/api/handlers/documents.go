package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/auth"
	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/internal/storage"
	"github.com/saturnlabs/docchat/pkg/textextract"
)

type DocumentHandler struct {
	svc         *document.Service
	storage     storage.Storage
	bucket      string
	queueClient queue.Enqueuer
}

func NewDocumentHandler(svc *document.Service, store storage.Storage, bucket string, qc queue.Enqueuer) *DocumentHandler {
	return &DocumentHandler{svc: svc, storage: store, bucket: bucket, queueClient: qc}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !textextract.Supported(contentType) {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported content type")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	path := fmt.Sprintf("%s/%s/%s", ownerID, uuid.New(), header.Filename)
	if err := h.storage.Upload(r.Context(), h.bucket, path, file, contentType); err != nil {
		slog.Error("object upload failed", "path", path, "error", err)
		writeErr(w, http.StatusInternalServerError, "upload failed")
		return
	}

	doc, err := h.svc.Create(r.Context(), document.CreateRequest{
		OwnerID:       ownerID,
		Title:         title,
		StoragePath:   path,
		ContentType:   contentType,
		FileSizeBytes: header.Size,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not create document")
		return
	}

	if err := h.queueClient.EnqueueDocumentExtract(queue.DocumentExtractPayload{
		DocumentID: doc.ID.String(),
		OwnerID:    ownerID.String(),
	}); err != nil {
		slog.Error("enqueue extract failed", "document_id", doc.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	docs, err := h.svc.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":              doc.ID.String(),
		"status":          doc.Status,
		"chunks_expected": doc.ChunksExpected,
		"chunks_indexed":  doc.ChunksIndexed,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	if err := h.svc.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "document not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	ownerID, authed := auth.OwnerFromContext(r.Context())
	if !authed {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid document ID")
		return nil, false
	}

	d, err := h.svc.GetOwned(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return d, true
}
