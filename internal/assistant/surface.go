// Package assistant composes one visible chat: a transcript, the active
// session, the send path, the conversation directory and the course
// workflow.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/conversation"
	"github.com/capitalize-ai/learning-assistant/internal/course"
	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// ErrDecisionPending is returned when the user tries to chat while a course
// is generating or a proposal awaits confirm, regenerate or abort.
var ErrDecisionPending = errors.New("assistant: a course decision is pending")

// Backend is the remote learning platform as seen by a surface.
type Backend interface {
	conversation.ChatAPI
	conversation.DirectoryAPI
}

// Executor runs intents on the stateless endpoints.
type Executor interface {
	Execute(ctx context.Context, in intent.Intent, p legacy.Profile) (model.Outcome, error)
}

// Publisher receives every appended message and every surface event.
type Publisher interface {
	PublishEvent(ctx context.Context, event *model.AssistantEvent)
	PublishMessage(ctx context.Context, userID, conversationID string, msg model.Message)
}

// Config holds the per-user settings of a surface.
type Config struct {
	UserID            string
	Greeting          string
	ContextWindow     int
	SystemPrompt      string
	Skills            []string
	CourseGenDisabled bool
	GenerationTimeout time.Duration
}

// Snapshot is a rendering projection of a surface.
type Snapshot struct {
	UserID         string                `json:"user_id"`
	ConversationID string                `json:"conversation_id,omitempty"`
	State          course.State          `json:"state"`
	Proposal       *model.CourseProposal `json:"proposal,omitempty"`
	Messages       []model.Message       `json:"messages"`
}

// Surface is one chat surface. Every entry point resolves a user action to
// transcript messages; backend failures never surface as errors of a turn.
type Surface struct {
	userID     string
	greeting   string
	session    *conversation.Session
	transcript *conversation.Transcript
	manager    *conversation.Manager
	directory  *conversation.Directory
	workflow   *course.Controller
	publisher  Publisher
	logger     *logger.Logger
}

// New creates a new surface. pub may be nil.
func New(cfg Config, api Backend, exec Executor, pub Publisher, log *logger.Logger) *Surface {
	if cfg.Greeting == "" {
		cfg.Greeting = conversation.DefaultGreeting
	}
	log = log.With(zap.String("user_id", cfg.UserID))

	session := conversation.NewSession(cfg.UserID)
	transcript := conversation.NewTranscript(cfg.Greeting)

	var (
		sink   conversation.EventSink
		wfSink course.EventSink
	)
	if pub != nil {
		sink, wfSink = pub, pub
		transcript.SetObserver(func(msg model.Message) {
			pub.PublishMessage(context.Background(), cfg.UserID, session.ConversationID(), msg)
		})
	}

	manager := conversation.NewManager(api, exec, session, transcript, conversation.ManagerConfig{
		ContextWindow:     cfg.ContextWindow,
		SystemPrompt:      cfg.SystemPrompt,
		Skills:            cfg.Skills,
		CourseGenDisabled: cfg.CourseGenDisabled,
	}, sink, log.Named("conversation"))

	return &Surface{
		userID:     cfg.UserID,
		greeting:   cfg.Greeting,
		session:    session,
		transcript: transcript,
		manager:    manager,
		directory:  conversation.NewDirectory(api, session, transcript, cfg.Greeting, sink, log.Named("directory")),
		workflow:   course.NewController(exec, manager.Profile, course.Config{Timeout: cfg.GenerationTimeout}, wfSink, log.Named("course")),
		publisher:  pub,
		logger:     log,
	}
}

// UserID returns the owner of the surface.
func (s *Surface) UserID() string {
	return s.userID
}

// Send runs one user turn and returns the messages it appended. Generation
// requests go through the course workflow; everything else is a plain turn.
// Both fail with ErrDecisionPending unless the workflow is Idle.
func (s *Surface) Send(ctx context.Context, raw string) (*model.SendMessageResponse, error) {
	started := s.session.ConversationID() == ""
	defer func() {
		if started && s.session.ConversationID() != "" {
			s.refreshDirectory(ctx)
		}
	}()

	if intent.LooksLikeGeneration(raw) {
		var user model.Message
		reply, out, err := s.workflow.Generate(ctx, func(ctx context.Context) (model.Outcome, error) {
			user = s.appendUser(raw)
			return s.manager.Send(ctx, raw), nil
		})
		if errors.Is(err, course.ErrBusy) {
			return nil, ErrDecisionPending
		}
		if err != nil {
			return nil, err
		}
		s.transcript.Append(reply)
		return respond(out.Kind, user, reply), nil
	}

	end, err := s.workflow.BeginTurn()
	if err != nil {
		return nil, ErrDecisionPending
	}
	defer end()

	user := s.appendUser(raw)
	out := s.manager.Send(ctx, raw)
	reply := replyMessage(out)
	s.transcript.Append(reply)
	return respond(out.Kind, user, reply), nil
}

// refreshDirectory re-lists conversations after a send started a new one.
func (s *Surface) refreshDirectory(ctx context.Context) {
	if _, err := s.directory.List(ctx, s.userID); err != nil {
		s.logger.Warn("failed to refresh conversations", zap.Error(err))
	}
}

// Confirm saves the pending course proposal.
func (s *Surface) Confirm(ctx context.Context) (*model.SendMessageResponse, error) {
	reply, out, err := s.workflow.Confirm(ctx)
	if err != nil {
		return nil, err
	}
	s.transcript.Append(reply)
	return respond(out.Kind, model.Message{}, reply), nil
}

// Regenerate asks for a new draft of the pending proposal.
func (s *Surface) Regenerate(ctx context.Context) (*model.SendMessageResponse, error) {
	reply, out, err := s.workflow.Regenerate(ctx, func() {
		s.transcript.Append(model.NewAssistantMessage(conversation.GenerationPlaceholderText))
	})
	if err != nil {
		return nil, err
	}
	s.transcript.Append(reply)
	return respond(out.Kind, model.Message{}, reply), nil
}

// Abort discards the pending proposal.
func (s *Surface) Abort(ctx context.Context) (*model.SendMessageResponse, error) {
	reply, err := s.workflow.Abort(ctx)
	if err != nil {
		return nil, err
	}
	s.transcript.Append(reply)
	return respond(model.OutcomeText, model.Message{}, reply), nil
}

// NewChat forgets the active conversation and resets the transcript to the
// greeting. A pending proposal is discarded; a running generation blocks it.
func (s *Surface) NewChat(ctx context.Context) error {
	if err := s.workflow.Reset(ctx); err != nil {
		return ErrDecisionPending
	}
	previous := s.session.ConversationID()
	s.session.Clear()
	s.transcript.Reset(model.NewAssistantMessage(s.greeting))

	s.publish(ctx, &model.AssistantEvent{
		ConversationID: previous,
		Type:           model.EventTypeReset,
		Reason:         "new_chat",
	})
	return nil
}

// Conversations refreshes and returns the user's conversation list.
func (s *Surface) Conversations(ctx context.Context) ([]model.ConversationSummary, error) {
	return s.directory.List(ctx, s.userID)
}

// OpenConversation switches to a past conversation. When the server no
// longer has it the surface recovers in place and recovered is true.
func (s *Surface) OpenConversation(ctx context.Context, conversationID string) (msgs []model.Message, recovered bool, err error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, false, fmt.Errorf("assistant: empty conversation id")
	}
	if err := s.workflow.Reset(ctx); err != nil {
		return nil, false, ErrDecisionPending
	}

	msgs, recovered, err = s.directory.History(ctx, conversationID, s.userID)
	if err != nil {
		return nil, false, err
	}
	if !recovered {
		s.session.Assign(conversationID)
	}
	return msgs, recovered, nil
}

// RenameConversation renames a conversation.
func (s *Surface) RenameConversation(ctx context.Context, conversationID, name string) (bool, error) {
	return s.directory.Rename(ctx, conversationID, s.userID, name)
}

// DeleteConversation deletes a conversation, resetting the surface when it
// was the active one.
func (s *Surface) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	return s.directory.Delete(ctx, conversationID, s.userID)
}

// Snapshot returns the current rendering state.
func (s *Surface) Snapshot() Snapshot {
	return Snapshot{
		UserID:         s.userID,
		ConversationID: s.session.ConversationID(),
		State:          s.workflow.State(),
		Proposal:       s.workflow.Proposal(),
		Messages:       s.transcript.Messages(),
	}
}

// Subscribe returns a live feed of transcript updates.
func (s *Surface) Subscribe() (<-chan model.MessageEvent, func()) {
	return s.transcript.Subscribe()
}

func (s *Surface) appendUser(raw string) model.Message {
	if strings.TrimSpace(raw) == "" {
		return model.Message{}
	}
	msg := model.NewUserMessage(raw)
	s.transcript.Append(msg)
	return msg
}

func (s *Surface) publish(ctx context.Context, e *model.AssistantEvent) {
	if s.publisher == nil {
		return
	}
	e.ID = uuid.Must(uuid.NewV7()).String()
	e.UserID = s.userID
	e.CreatedAt = time.Now()
	s.publisher.PublishEvent(ctx, e)
}

func replyMessage(out model.Outcome) model.Message {
	switch {
	case out.Kind == model.OutcomeCourseConfirmed && out.Confirmed != nil:
		return model.NewAssistantMessage(course.ConfirmedText(*out.Confirmed, nil))
	case out.Kind == model.OutcomeCourseProposal && out.Proposal != nil:
		return model.NewRichAssistantMessage(course.RenderProposal(*out.Proposal))
	default:
		return model.NewAssistantMessage(out.Text)
	}
}

func respond(kind model.OutcomeKind, user, reply model.Message) *model.SendMessageResponse {
	if kind == "" {
		kind = model.OutcomeText
	}
	msgs := make([]model.Message, 0, 2)
	if user.ID != "" {
		msgs = append(msgs, user)
	}
	return &model.SendMessageResponse{Outcome: kind, Messages: append(msgs, reply)}
}
