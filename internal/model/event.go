package model

import (
	"time"
)

// EventType represents the type of assistant event.
type EventType string

const (
	EventTypeFallback         EventType = "fallback"
	EventTypeConversation     EventType = "conversation_started"
	EventTypeNotFoundRecovery EventType = "not_found_recovery"
	EventTypeWorkflow         EventType = "workflow"
	EventTypeReset            EventType = "reset"
)

// AssistantEvent records something that happened on a chat surface besides
// a transcript append.
type AssistantEvent struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
