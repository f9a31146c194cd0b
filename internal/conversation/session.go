// Package conversation manages the active server-side conversation of a chat
// surface: its identity, its transcript, the primary/fallback send path and
// the directory of past conversations.
package conversation

import (
	"context"
	"sync"

	"github.com/capitalize-ai/learning-assistant/internal/model"
)

// Session is the active conversational context. The conversation id is
// written synchronously the moment it is learned, so the next send always
// sees it; rendering reads are projections of this value.
type Session struct {
	mu             sync.RWMutex
	userID         string
	conversationID string
}

// NewSession creates an empty session for userID.
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// UserID returns the session owner.
func (s *Session) UserID() string {
	return s.userID
}

// ConversationID returns the active conversation id, or "" when no
// server-side conversation exists yet.
func (s *Session) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Assign sets the active conversation id.
func (s *Session) Assign(conversationID string) {
	s.mu.Lock()
	s.conversationID = conversationID
	s.mu.Unlock()
}

// Clear forgets the active conversation; the next send starts a new one.
func (s *Session) Clear() {
	s.Assign("")
}

// clearIf forgets the active conversation only if it is conversationID.
func (s *Session) clearIf(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID != conversationID {
		return false
	}
	s.conversationID = ""
	return true
}

// EventSink receives surface events. Publishing is best effort.
type EventSink interface {
	PublishEvent(ctx context.Context, event *model.AssistantEvent)
}

type nopSink struct{}

func (nopSink) PublishEvent(context.Context, *model.AssistantEvent) {}
