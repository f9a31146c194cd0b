package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/middleware"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// ConversationHandler handles conversation directory endpoints.
type ConversationHandler struct {
	surfaces Surfaces
	logger   *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(surfaces Surfaces, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		surfaces: surfaces,
		logger:   log,
	}
}

// OpenResponse is the result of switching conversations.
type OpenResponse struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Recovered      bool            `json:"recovered"`
	Messages       []model.Message `json:"messages"`
}

// List handles GET /api/v1/assistant/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ctx := surfaceFor(r, h.surfaces)

	list, err := s.Conversations(ctx)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations: list,
		Total:         len(list),
	})
}

// Open handles POST /api/v1/assistant/conversations/{id}/open
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ctx := surfaceFor(r, h.surfaces)
	msgs, recovered, err := s.OpenConversation(ctx, conversationID)
	if err != nil {
		h.fail(w, r, "open", err)
		return
	}

	writeJSON(w, http.StatusOK, &OpenResponse{
		ConversationID: s.Snapshot().ConversationID,
		Recovered:      recovered,
		Messages:       msgs,
	})
}

// Rename handles PUT /api/v1/assistant/conversations/{id}/name
func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateConversationName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ctx := surfaceFor(r, h.surfaces)
	ok, err := s.RenameConversation(ctx, conversationID, req.Name)
	if err != nil {
		h.fail(w, r, "rename", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/assistant/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ctx := surfaceFor(r, h.surfaces)
	ok, err := s.DeleteConversation(ctx, conversationID)
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status, msg := statusFor(err)
	h.logger.WithContext(middleware.GetCorrelationID(r.Context()), middleware.GetUserID(r.Context())).
		Warn("conversation request failed", zap.String("action", action), zap.Error(err))
	writeError(w, status, msg)
}
