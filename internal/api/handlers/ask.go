package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/auth"
	"github.com/saturnlabs/docchat/internal/conversation"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/rag"
)

type AskHandler struct {
	answerer *rag.Answerer
	convos   *conversation.Service
	window   int
}

func NewAskHandler(answerer *rag.Answerer, convos *conversation.Service, historyWindow int) *AskHandler {
	return &AskHandler{answerer: answerer, convos: convos, window: historyWindow}
}

type askRequest struct {
	Question       string     `json:"question"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	History        []llm.Turn `json:"history,omitempty"`
}

type askResponse struct {
	Text           string     `json:"text"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history := req.History
	if req.ConversationID != nil {
		if _, err := h.convos.Get(r.Context(), ownerID, *req.ConversationID); err != nil {
			writeErr(w, http.StatusNotFound, "conversation not found")
			return
		}
		turns, err := h.convos.History(r.Context(), *req.ConversationID, h.window)
		if err != nil {
			slog.Error("loading conversation history failed", "conversation_id", req.ConversationID, "error", err)
			writeErr(w, http.StatusInternalServerError, "internal error")
			return
		}
		history = make([]llm.Turn, len(turns))
		for i, t := range turns {
			history[i] = llm.Turn{Role: t.Role, Content: t.Content}
		}
	}

	answer, err := h.answerer.Answer(r.Context(), ownerID, req.Question, history)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuestion):
			writeErr(w, http.StatusBadRequest, "question is required")
		default:
			writeErr(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if req.ConversationID != nil {
		if err := h.convos.AppendTurn(r.Context(), *req.ConversationID, models.TurnRoleUser, req.Question); err != nil {
			slog.Error("persisting user turn failed", "conversation_id", req.ConversationID, "error", err)
		} else if err := h.convos.AppendTurn(r.Context(), *req.ConversationID, models.TurnRoleModel, answer); err != nil {
			slog.Error("persisting model turn failed", "conversation_id", req.ConversationID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, askResponse{Text: answer, ConversationID: req.ConversationID})
}
