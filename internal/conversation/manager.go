package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
	"github.com/capitalize-ai/learning-assistant/pkg/tracing"
)

const (
	// GenerationPlaceholderText is shown while a course is being generated.
	GenerationPlaceholderText = "⏳ Generating your course… this can take a while, hang tight!"

	// DegradedReplyText answers a turn when both paths failed.
	DegradedReplyText = "I'm having trouble reaching my knowledge service right now, so I can only give you a limited answer. Please try again in a moment."
)

// ChatAPI is the primary conversational endpoint.
type ChatAPI interface {
	Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
}

// Fallback runs a classified intent on the stateless path.
type Fallback interface {
	Execute(ctx context.Context, in intent.Intent, p legacy.Profile) (model.Outcome, error)
}

// ManagerConfig tunes the primary path.
type ManagerConfig struct {
	ContextWindow     int
	SystemPrompt      string
	Skills            []string
	CourseGenDisabled bool
}

// Manager sends user turns: primary conversational endpoint first, the
// legacy executor once if that fails.
type Manager struct {
	api        ChatAPI
	fallback   Fallback
	session    *Session
	transcript *Transcript
	cfg        ManagerConfig
	events     EventSink
	logger     *logger.Logger
	tracer     trace.Tracer

	// startMu serializes turns that would start a conversation, so two quick
	// sends cannot both create one.
	startMu sync.Mutex
}

// NewManager creates a new session manager. events may be nil.
func NewManager(
	api ChatAPI,
	fallback Fallback,
	session *Session,
	transcript *Transcript,
	cfg ManagerConfig,
	events EventSink,
	log *logger.Logger,
) *Manager {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 10
	}
	if events == nil {
		events = nopSink{}
	}
	return &Manager{
		api:        api,
		fallback:   fallback,
		session:    session,
		transcript: transcript,
		cfg:        cfg,
		events:     events,
		logger:     log,
		tracer:     tracing.Tracer("conversation"),
	}
}

// Send runs one user turn. It always resolves to an outcome: primary
// failures fall back to the legacy path, and fallback failures become a
// degraded text reply.
func (m *Manager) Send(ctx context.Context, rawText string) model.Outcome {
	ctx, span := m.tracer.Start(ctx, "conversation.send")
	defer span.End()

	if intent.LooksLikeGeneration(rawText) {
		m.transcript.Append(model.NewAssistantMessage(GenerationPlaceholderText))
	}

	// Blank input never reaches the network.
	if strings.TrimSpace(rawText) == "" {
		return model.TextOutcome(legacy.EmptyMessageText)
	}

	text, err := m.primary(ctx, rawText)
	if err == nil {
		metrics.RecordTurn("primary", "success")
		return model.TextOutcome(text)
	}

	span.RecordError(err)
	metrics.RecordTurn("primary", "error")
	m.logger.Warn("primary chat failed, using fallback",
		zap.String("user_id", m.session.UserID()),
		zap.String("conversation_id", m.session.ConversationID()),
		zap.Error(err),
	)
	m.events.PublishEvent(ctx, m.event(model.EventTypeFallback, err.Error()))

	return m.runFallback(ctx, rawText)
}

func (m *Manager) primary(ctx context.Context, rawText string) (string, error) {
	ctx, span := m.tracer.Start(ctx, "conversation.primary")
	defer span.End()

	if id := m.session.ConversationID(); id != "" {
		return m.chat(ctx, span, id, rawText)
	}

	m.startMu.Lock()
	defer m.startMu.Unlock()

	// Another turn may have started the conversation while we waited.
	if id := m.session.ConversationID(); id != "" {
		return m.chat(ctx, span, id, rawText)
	}

	resp, err := m.call(ctx, span, "", rawText)
	if err != nil {
		return "", err
	}
	if resp.ConversationID != "" {
		m.session.Assign(resp.ConversationID)
		metrics.ConversationsStarted.Inc()
		m.logger.Info("conversation started",
			zap.String("user_id", m.session.UserID()),
			zap.String("conversation_id", resp.ConversationID),
			zap.String("provider", resp.Provider),
		)
		m.events.PublishEvent(ctx, m.event(model.EventTypeConversation, ""))
	}
	return resp.Message, nil
}

func (m *Manager) chat(ctx context.Context, span trace.Span, conversationID, rawText string) (string, error) {
	resp, err := m.call(ctx, span, conversationID, rawText)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (m *Manager) call(ctx context.Context, span trace.Span, conversationID, rawText string) (*model.ChatResponse, error) {
	span.SetAttributes(
		attribute.Bool("conversation.start", conversationID == ""),
		attribute.String("conversation.id", conversationID),
	)
	resp, err := m.api.Chat(ctx, &model.ChatRequest{
		Message:        rawText,
		UserID:         m.session.UserID(),
		ConversationID: conversationID,
		ContextWindow:  m.cfg.ContextWindow,
		SystemPrompt:   m.cfg.SystemPrompt,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

func (m *Manager) runFallback(ctx context.Context, rawText string) model.Outcome {
	ctx, span := m.tracer.Start(ctx, "conversation.fallback")
	defer span.End()

	in := intent.Classify(rawText)
	span.SetAttributes(attribute.String("intent", in.Kind.String()))

	out, err := m.fallback.Execute(ctx, in, m.profile())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordTurn("fallback", "error")
		m.logger.Error("fallback failed",
			zap.String("user_id", m.session.UserID()),
			zap.String("intent", in.Kind.String()),
			zap.Error(err),
		)
		out = model.TextOutcome(DegradedReplyText)
	} else {
		metrics.RecordTurn("fallback", "success")
	}
	out.Degraded = true
	return out
}

// Profile returns the legacy executor profile of this session.
func (m *Manager) Profile() legacy.Profile {
	return m.profile()
}

func (m *Manager) profile() legacy.Profile {
	return legacy.Profile{
		UserID:            m.session.UserID(),
		Skills:            m.cfg.Skills,
		CourseGenDisabled: m.cfg.CourseGenDisabled,
	}
}

func (m *Manager) event(t model.EventType, reason string) *model.AssistantEvent {
	return &model.AssistantEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         m.session.UserID(),
		ConversationID: m.session.ConversationID(),
		Type:           t,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
}
