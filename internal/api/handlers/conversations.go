package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/auth"
	"github.com/saturnlabs/docchat/internal/conversation"
)

type ConversationHandler struct {
	svc *conversation.Service
}

func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	convo, err := h.svc.Create(r.Context(), ownerID, req.Title)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, convo)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
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

	convos, err := h.svc.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not list conversations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": convos, "count": len(convos)})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	convo, err := h.svc.Get(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not load conversation")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	turns, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not load conversation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conversation": convo, "turns": turns})
}
