// Package legacy executes classified commands against the stateless
// completion and course endpoints. It is the fallback when the
// conversational endpoint is unavailable.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/internal/reply"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

// Completer answers a single free-form prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CourseAPI generates and confirms courses. Results are raw so the caller
// can normalize whatever shape the server returns.
type CourseAPI interface {
	GenerateCourse(ctx context.Context, userID, prompt string, skills []string) (json.RawMessage, error)
	ConfirmCourse(ctx context.Context, userID string) (json.RawMessage, error)
}

// Profile carries the per-user inputs of a command.
type Profile struct {
	UserID            string
	Skills            []string
	CourseGenDisabled bool
}

const HelpText = `Here is what I can do:
• /help – show this message
• /explain <topic> – get a beginner-friendly explanation of a topic
• /generate <topic> – draft a new course on a topic for you to review
• /confirm – save the last drafted course
Anything else is treated as a normal chat message.`

const (
	MissingExplainTopicText = "❌ Please specify a topic to explain. Example: /explain React hooks"
	MissingCourseTopicText  = "❌ Please provide a topic for the course. Example: /generate Introduction to Python"
	EmptyMessageText        = "❌ Please provide a message. Example: How do closures work?"
	CourseGenDisabledText   = "Course generation is not available in chat. Please use the Course Generator page to create a new course."
	ConfirmSuccessText      = "✅ Your course has been confirmed and saved! You can find it in your courses."
)

// ErrNoCompleter is returned when a prompt needs completing but no
// completer is configured.
var ErrNoCompleter = errors.New("legacy: no completer configured")

// Executor runs intents on the stateless endpoints.
type Executor struct {
	completer Completer
	courses   CourseAPI
	logger    *logger.Logger
}

// NewExecutor creates a new executor.
func NewExecutor(completer Completer, courses CourseAPI, log *logger.Logger) *Executor {
	return &Executor{
		completer: completer,
		courses:   courses,
		logger:    log,
	}
}

// Execute runs in for p. Validation failures come back as text without any
// network call; network failures are returned as errors for the caller to
// turn into a user-facing message.
func (e *Executor) Execute(ctx context.Context, in intent.Intent, p Profile) (model.Outcome, error) {
	switch in.Kind {
	case intent.KindHelp:
		return model.TextOutcome(HelpText), nil

	case intent.KindExplain:
		if in.Topic == "" {
			return model.TextOutcome(MissingExplainTopicText), nil
		}
		text, err := e.complete(ctx, ExplainPrompt(in.Topic))
		if err != nil {
			return model.Outcome{}, err
		}
		return model.TextOutcome(text), nil

	case intent.KindGenerateCourse:
		if in.Topic == "" {
			return model.TextOutcome(MissingCourseTopicText), nil
		}
		if p.CourseGenDisabled {
			return model.TextOutcome(CourseGenDisabledText), nil
		}
		return e.generate(ctx, in.Topic, p)

	case intent.KindConfirmCourse:
		return e.confirm(ctx, p)

	default:
		if strings.TrimSpace(in.Text) == "" {
			return model.TextOutcome(EmptyMessageText), nil
		}
		text, err := e.complete(ctx, ChatPrompt(in.Text))
		if err != nil {
			return model.Outcome{}, err
		}
		return model.TextOutcome(text), nil
	}
}

func (e *Executor) complete(ctx context.Context, prompt string) (string, error) {
	if e.completer == nil {
		return "", ErrNoCompleter
	}
	return e.completer.Complete(ctx, prompt)
}

func (e *Executor) generate(ctx context.Context, topic string, p Profile) (model.Outcome, error) {
	raw, err := e.courses.GenerateCourse(ctx, p.UserID, topic, p.Skills)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("generate course: %w", err)
	}

	r := reply.Normalize(raw)
	if r.Kind == reply.KindCourse {
		e.logger.Debug("course proposal received",
			zap.String("user_id", p.UserID),
			zap.String("title", r.Course.Title),
		)
		return model.ProposalOutcome(model.CourseProposal{
			Payload:           *r.Course,
			OriginatingPrompt: topic,
		}), nil
	}
	return model.TextOutcome(r.Text), nil
}

func (e *Executor) confirm(ctx context.Context, p Profile) (model.Outcome, error) {
	raw, err := e.courses.ConfirmCourse(ctx, p.UserID)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("confirm course: %w", err)
	}

	c := reply.NormalizeConfirm(raw)
	if c.Confirmed {
		return model.ConfirmedOutcome(c.Result), nil
	}
	if LooksConfirmed(c.Text) {
		return model.TextOutcome(ConfirmSuccessText), nil
	}
	return model.TextOutcome(c.Text), nil
}

// LooksConfirmed reports whether a plain confirm reply reads as success.
func LooksConfirmed(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "confirmed") || strings.Contains(lower, "success")
}

// ExplainPrompt builds the elaboration prompt for /explain.
func ExplainPrompt(topic string) string {
	return fmt.Sprintf(`Explain the following topic to a beginner: %q.
Use short bullet points for the key ideas.
Include exactly one concrete example.
Keep the language simple and friendly, and avoid unexplained jargon.`, topic)
}

// ChatPrompt wraps a free chat message for the completion endpoint.
func ChatPrompt(text string) string {
	return "You are a helpful learning assistant. Respond briefly and conversationally to the following message:\n\n" + text
}
