// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/middleware"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// AssistantHandler handles chat and course workflow endpoints.
type AssistantHandler struct {
	surfaces Surfaces
	logger   *logger.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(surfaces Surfaces, log *logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		surfaces: surfaces,
		logger:   log,
	}
}

// Snapshot handles GET /api/v1/assistant
func (h *AssistantHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, _ := surfaceFor(r, h.surfaces)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Send handles POST /api/v1/assistant/messages
func (h *AssistantHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ctx := surfaceFor(r, h.surfaces)
	// A turn outlives a dropped connection; the reply lands in the
	// transcript and reaches the client over the stream.
	resp, err := s.Send(context.WithoutCancel(ctx), req.Content)
	h.respond(w, r, "send", resp, err)
}

// Confirm handles POST /api/v1/assistant/course/confirm
func (h *AssistantHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ctx := surfaceFor(r, h.surfaces)
	resp, err := s.Confirm(context.WithoutCancel(ctx))
	h.respond(w, r, "confirm", resp, err)
}

// Regenerate handles POST /api/v1/assistant/course/regenerate
func (h *AssistantHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	s, ctx := surfaceFor(r, h.surfaces)
	resp, err := s.Regenerate(context.WithoutCancel(ctx))
	h.respond(w, r, "regenerate", resp, err)
}

// Abort handles POST /api/v1/assistant/course/abort
func (h *AssistantHandler) Abort(w http.ResponseWriter, r *http.Request) {
	s, ctx := surfaceFor(r, h.surfaces)
	resp, err := s.Abort(ctx)
	h.respond(w, r, "abort", resp, err)
}

// Reset handles POST /api/v1/assistant/reset
func (h *AssistantHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ctx := surfaceFor(r, h.surfaces)
	if err := s.NewChat(ctx); err != nil {
		status, msg := statusFor(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *AssistantHandler) respond(w http.ResponseWriter, r *http.Request, action string, resp *model.SendMessageResponse, err error) {
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithContext(middleware.GetCorrelationID(r.Context()), middleware.GetUserID(r.Context())).
				Error("assistant action failed", zap.String("action", action), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
