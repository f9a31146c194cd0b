package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/backend"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

// NotFoundText replaces the transcript when a conversation has vanished.
const NotFoundText = "ℹ️ This conversation is no longer available; it may have been deleted. Send a message to start a new one."

// DirectoryAPI is the conversation directory endpoint set.
type DirectoryAPI interface {
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	History(ctx context.Context, conversationID, userID string) ([]model.HistoryEntry, error)
	RenameConversation(ctx context.Context, conversationID, userID, name string) (bool, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error)
}

// Directory lists, loads, renames and deletes conversations. Its list is a
// cache of server state, refreshed after every mutation.
type Directory struct {
	api        DirectoryAPI
	session    *Session
	transcript *Transcript
	greeting   string
	events     EventSink
	logger     *logger.Logger

	mu    sync.RWMutex
	cache []model.ConversationSummary
}

// NewDirectory creates a new directory bound to a surface's session and
// transcript. events may be nil.
func NewDirectory(api DirectoryAPI, session *Session, transcript *Transcript, greeting string, events EventSink, log *logger.Logger) *Directory {
	if events == nil {
		events = nopSink{}
	}
	return &Directory{
		api:        api,
		session:    session,
		transcript: transcript,
		greeting:   greeting,
		events:     events,
		logger:     log,
	}
}

// List fetches the user's conversations and replaces the cache.
func (d *Directory) List(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	list, err := d.api.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	d.mu.Lock()
	d.cache = append([]model.ConversationSummary(nil), list...)
	d.mu.Unlock()

	return list, nil
}

// Cached returns the last fetched list.
func (d *Directory) Cached() []model.ConversationSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.ConversationSummary(nil), d.cache...)
}

// History loads a conversation and replaces the transcript with it. When the
// server no longer knows the conversation, the directory heals itself: the
// entry is dropped, the transcript shows an explanation, the session id is
// cleared and recovered is true. That case is not an error.
func (d *Directory) History(ctx context.Context, conversationID, userID string) (msgs []model.Message, recovered bool, err error) {
	entries, err := d.api.History(ctx, conversationID, userID)
	if errors.Is(err, backend.ErrNotFound) {
		return d.recover(ctx, conversationID, userID), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	msgs = make([]model.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, toMessage(e))
	}
	d.transcript.Reset(msgs...)
	return msgs, false, nil
}

func (d *Directory) recover(ctx context.Context, conversationID, userID string) []model.Message {
	d.mu.Lock()
	kept := d.cache[:0:0]
	for _, c := range d.cache {
		if c.ConversationID != conversationID {
			kept = append(kept, c)
		}
	}
	d.cache = kept
	d.mu.Unlock()

	note := model.NewAssistantMessage(NotFoundText)
	d.transcript.Reset(note)
	d.session.Clear()

	metrics.NotFoundRecoveries.Inc()
	d.logger.Info("conversation not found, cleared session",
		zap.String("user_id", userID),
		zap.String("conversation_id", conversationID),
	)
	d.events.PublishEvent(ctx, &model.AssistantEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         userID,
		ConversationID: conversationID,
		Type:           model.EventTypeNotFoundRecovery,
		CreatedAt:      time.Now(),
	})

	return []model.Message{note}
}

// Rename renames a conversation and refreshes the list.
func (d *Directory) Rename(ctx context.Context, conversationID, userID, name string) (bool, error) {
	ok, err := d.api.RenameConversation(ctx, conversationID, userID, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("rename conversation %s: %w", conversationID, err)
	}
	d.refresh(ctx, userID)
	return ok, nil
}

// Delete deletes a conversation and refreshes the list. Deleting the active
// conversation also clears the session and resets the transcript.
func (d *Directory) Delete(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := d.api.DeleteConversation(ctx, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	if ok && d.session.clearIf(conversationID) {
		d.transcript.Reset(d.greetingMessages()...)
	}
	d.refresh(ctx, userID)
	return ok, nil
}

func (d *Directory) refresh(ctx context.Context, userID string) {
	if _, err := d.List(ctx, userID); err != nil {
		d.logger.Warn("failed to refresh conversation list",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (d *Directory) greetingMessages() []model.Message {
	if d.greeting == "" {
		return nil
	}
	return []model.Message{model.NewAssistantMessage(d.greeting)}
}

func toMessage(e model.HistoryEntry) model.Message {
	sender := model.SenderAssistant
	if strings.EqualFold(strings.TrimSpace(e.Role), "user") {
		sender = model.SenderUser
	}
	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Text:      e.Content,
		Sender:    sender,
		Timestamp: e.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}
