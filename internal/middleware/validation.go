package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxMessageLength        = 16 * 1024
	maxConversationIDLength = 128
	maxNameLength           = 256
)

// ValidateMessageContent validates chat message content. Blank content is
// allowed: the assistant answers it with a usage hint.
func ValidateMessageContent(content string) error {
	if len(content) > maxMessageLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates an opaque conversation id.
func ValidateConversationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > maxConversationIDLength {
		return errors.New("conversation ID exceeds maximum length")
	}
	if strings.ContainsAny(id, "/?#") {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateConversationName validates a conversation name.
func ValidateConversationName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return errors.New("name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("name must be valid UTF-8")
	}
	return nil
}
