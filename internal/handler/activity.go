package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/middleware"
	natsclient "github.com/capitalize-ai/learning-assistant/internal/nats"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// ActivityReader reads a user's published activity.
type ActivityReader interface {
	Recent(ctx context.Context, userID string, afterSequence uint64, limit int) ([]natsclient.Activity, uint64, bool, error)
}

// ActivityResponse is a page of published activity.
type ActivityResponse struct {
	Activity     []natsclient.Activity `json:"activity"`
	LastSequence uint64                `json:"last_sequence"`
	HasMore      bool                  `json:"has_more"`
}

// ActivityHandler serves the caller's published transcript and events.
type ActivityHandler struct {
	reader ActivityReader
	logger *logger.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(reader ActivityReader, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{reader: reader, logger: log}
}

// List handles GET /api/v1/assistant/activity?after_sequence=N&limit=M
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var afterSequence uint64
	limit := 50

	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	activity, last, more, err := h.reader.Recent(ctx, userID, afterSequence, limit)
	if err != nil {
		h.logger.WithContext(middleware.GetCorrelationID(ctx), userID).
			Error("failed to read activity", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read activity")
		return
	}

	writeJSON(w, http.StatusOK, &ActivityResponse{
		Activity:     activity,
		LastSequence: last,
		HasMore:      more,
	})
}
