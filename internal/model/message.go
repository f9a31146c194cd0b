// Package model defines data structures for the learning assistant.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a transcript message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn in the visible transcript. Messages are append-only
// and never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// IsRichContent marks text that is already rendered markup and must be
	// displayed as-is rather than parsed.
	IsRichContent bool `json:"is_rich_content,omitempty"`
}

// NewUserMessage creates a user message stamped now.
func NewUserMessage(text string) Message {
	return newMessage(SenderUser, text, false)
}

// NewAssistantMessage creates a plain assistant message stamped now.
func NewAssistantMessage(text string) Message {
	return newMessage(SenderAssistant, text, false)
}

// NewRichAssistantMessage creates an assistant message carrying pre-rendered markup.
func NewRichAssistantMessage(markup string) Message {
	return newMessage(SenderAssistant, markup, true)
}

func newMessage(sender Sender, text string, rich bool) Message {
	return Message{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Text:          text,
		Sender:        sender,
		Timestamp:     time.Now(),
		IsRichContent: rich,
	}
}

// SendMessageRequest is the request to send a chat message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse returns the messages a turn appended and the outcome kind.
type SendMessageResponse struct {
	Outcome  OutcomeKind `json:"outcome"`
	Messages []Message   `json:"messages"`
}

// MessageEvent is a live transcript update delivered over SSE. An append
// carries Message; a reset carries the whole replacement in Messages.
type MessageEvent struct {
	Message  Message   `json:"message"`
	Reset    bool      `json:"reset,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
