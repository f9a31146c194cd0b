package model

import (
	"time"
)

// ConversationSummary is a directory entry for one server-side conversation.
type ConversationSummary struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name,omitempty"`
	MessageCount   int       `json:"messageCount"`
	CreatedAt      time.Time `json:"createdAt"`
	LastUpdated    time.Time `json:"lastUpdated"`
	ContextWindow  int       `json:"contextWindow"`
}

// HistoryEntry is one remote message as returned by the history endpoint.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the primary conversational endpoint request. An empty
// ConversationID asks the server to start a new conversation.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
	ContextWindow  int    `json:"contextWindow"`
	SystemPrompt   string `json:"systemPrompt,omitempty"`
}

// ChatResponse is the primary conversational endpoint response.
type ChatResponse struct {
	Message        string    `json:"message"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Timestamp      time.Time `json:"timestamp"`
	ContextLength  int       `json:"contextLength"`
	Provider       string    `json:"provider"`
}

// RenameConversationRequest is the request to rename a conversation.
type RenameConversationRequest struct {
	Name string `json:"name"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}
