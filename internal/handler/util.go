package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/learning-assistant/internal/assistant"
	"github.com/capitalize-ai/learning-assistant/internal/backend"
	"github.com/capitalize-ai/learning-assistant/internal/course"
	"github.com/capitalize-ai/learning-assistant/internal/middleware"
)

// Surfaces hands out the chat surface of a user.
type Surfaces interface {
	Get(userID string, skills []string) *assistant.Surface
}

// surfaceFor returns the caller's surface and a context carrying the
// caller's token for backend calls.
func surfaceFor(r *http.Request, surfaces Surfaces) (*assistant.Surface, context.Context) {
	ctx := r.Context()
	s := surfaces.Get(middleware.GetUserID(ctx), middleware.GetSkills(ctx))
	return s, backend.WithToken(ctx, middleware.GetToken(ctx))
}

// statusFor maps surface and backend errors to HTTP statuses.
func statusFor(err error) (int, string) {
	var se *backend.StatusError
	switch {
	case errors.Is(err, assistant.ErrDecisionPending), errors.Is(err, course.ErrBusy):
		return http.StatusConflict, "a course decision is pending"
	case errors.Is(err, course.ErrNoProposal):
		return http.StatusConflict, "no course proposal pending"
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.As(err, &se):
		return http.StatusBadGateway, "learning platform error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "learning platform timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
