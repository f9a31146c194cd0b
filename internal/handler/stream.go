package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/middleware"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

// HeartbeatInterval is how often an idle stream sends a heartbeat.
var HeartbeatInterval = 30 * time.Second

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	surfaces Surfaces
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(surfaces Surfaces, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		surfaces: surfaces,
		logger:   log,
	}
}

// Stream handles GET /api/v1/assistant/stream. It sends the current snapshot,
// then every transcript append as a "message" event and every transcript
// replacement as a "reset" event carrying the new messages.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	log := h.logger.WithContext(middleware.GetCorrelationID(ctx), userID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	s, _ := surfaceFor(r, h.surfaces)

	// Subscribe before the snapshot so nothing falls between them.
	events, cancel := s.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	if err := sendSSEEvent(w, flusher, "snapshot", s.Snapshot()); err != nil {
		log.Warn("failed to send snapshot", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected")
			return

		case ev, open := <-events:
			if !open {
				return
			}
			event, data := "message", interface{}(ev.Message)
			if ev.Reset {
				reset := ResetEvent{Messages: ev.Messages}
				if reset.Messages == nil {
					reset.Messages = []model.Message{}
				}
				event, data = "reset", reset
			}
			if err := sendSSEEvent(w, flusher, event, data); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			}); err != nil {
				return
			}
		}
	}
}

// ResetEvent is the payload of a "reset" stream event.
type ResetEvent struct {
	Messages []model.Message `json:"messages"`
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
