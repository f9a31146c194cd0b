// Package course drives the course proposal workflow of a chat surface:
// generate a draft, then confirm, regenerate or abort it. Only one course
// decision can be outstanding at a time.
package course

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

// State is the workflow state.
type State int

const (
	StateIdle State = iota
	StateBusy
	StateProposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateProposed:
		return "proposed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrBusy is returned when an action is attempted while a call is in flight.
	ErrBusy = errors.New("course: workflow busy")

	// ErrNoProposal is returned by confirm, regenerate and abort when there is
	// no proposal to act on.
	ErrNoProposal = errors.New("course: no proposal pending")
)

// DefaultTimeout bounds a single generation or confirm call.
const DefaultTimeout = 3 * time.Minute

const (
	GenerationFailedText = "❌ Sorry, I couldn't generate that course. Please try again in a moment."
	ConfirmFailedText    = "❌ I couldn't save the course. Your draft is still here: confirm again, regenerate or abort."
	AbortedText          = "Course draft discarded. Let me know if you'd like to try a different topic."
	TimeoutText          = "❌ Course generation took too long and was cancelled. Please try again."
)

// Executor runs a classified intent on the stateless course endpoints.
type Executor interface {
	Execute(ctx context.Context, in intent.Intent, p legacy.Profile) (model.Outcome, error)
}

// Run performs one generation turn. Surfaces pass the session manager's
// send here so the turn follows the primary/fallback path.
type Run func(ctx context.Context) (model.Outcome, error)

// EventSink receives workflow transitions.
type EventSink interface {
	PublishEvent(ctx context.Context, event *model.AssistantEvent)
}

// Config tunes a controller.
type Config struct {
	Timeout time.Duration
}

// Controller is the course workflow state machine. Reads and transitions are
// guarded by mu; calls run without it held, with the state parked in Busy.
type Controller struct {
	exec    Executor
	profile func() legacy.Profile
	timeout time.Duration
	events  EventSink
	logger  *logger.Logger

	mu       sync.Mutex
	state    State
	proposal *model.CourseProposal
	turns    int
}

// NewController creates a new controller. profile is read on every call so
// it always reflects the current session; events may be nil.
func NewController(exec Executor, profile func() legacy.Profile, cfg Config, events EventSink, log *logger.Logger) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Controller{
		exec:    exec,
		profile: profile,
		timeout: cfg.Timeout,
		events:  events,
		logger:  log,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Proposal returns a copy of the pending proposal, or nil.
func (c *Controller) Proposal() *model.CourseProposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proposal == nil {
		return nil
	}
	p := *c.proposal
	return &p
}

// Generate runs a generation turn from Idle. A proposal moves the workflow to
// Proposed; text, an error or a timeout return it to Idle. The returned
// message is what the surface should append.
func (c *Controller) Generate(ctx context.Context, run Run) (model.Message, model.Outcome, error) {
	if err := c.beginGeneration(ctx); err != nil {
		return model.Message{}, model.Outcome{}, err
	}
	return c.generate(ctx, run)
}

// Regenerate resubmits the originating prompt of the pending proposal as a
// new generation. A failed regeneration drops to Idle like a failed first
// generation: the old draft is gone once regeneration starts. started, if
// not nil, is called once the workflow is Busy.
func (c *Controller) Regenerate(ctx context.Context, started func()) (model.Message, model.Outcome, error) {
	prompt, err := c.beginDecision(ctx)
	if err != nil {
		return model.Message{}, model.Outcome{}, err
	}
	c.mu.Lock()
	c.proposal = nil
	c.mu.Unlock()

	if started != nil {
		started()
	}

	return c.generate(ctx, func(ctx context.Context) (model.Outcome, error) {
		return c.exec.Execute(ctx, intent.Intent{Kind: intent.KindGenerateCourse, Topic: prompt}, c.profile())
	})
}

func (c *Controller) generate(ctx context.Context, run Run) (model.Message, model.Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := run(callCtx)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		c.logger.Warn("course generation failed", zap.String("user_id", c.userID()), zap.Error(err))
		c.finish(ctx, StateIdle, nil, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return model.NewAssistantMessage(TimeoutText), model.TextOutcome(TimeoutText), nil
		}
		return model.NewAssistantMessage(GenerationFailedText), model.TextOutcome(GenerationFailedText), nil
	}

	if out.Kind == model.OutcomeCourseProposal && out.Proposal != nil {
		p := *out.Proposal
		c.logger.Info("course proposed",
			zap.String("user_id", c.userID()),
			zap.String("title", p.Payload.Title),
			zap.Bool("degraded", out.Degraded),
		)
		c.finish(ctx, StateProposed, &p, "")
		return model.NewRichAssistantMessage(RenderProposal(p)), out, nil
	}

	c.finish(ctx, StateIdle, nil, "")
	return model.NewAssistantMessage(outcomeText(out)), out, nil
}

// Confirm saves the pending proposal. Success clears it and returns to Idle;
// any failure keeps it so the user can retry, regenerate or abort.
func (c *Controller) Confirm(ctx context.Context) (model.Message, model.Outcome, error) {
	if _, err := c.beginDecision(ctx); err != nil {
		return model.Message{}, model.Outcome{}, err
	}
	c.mu.Lock()
	keep := c.proposal
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.exec.Execute(callCtx, intent.Intent{Kind: intent.KindConfirmCourse}, c.profile())
	if err != nil {
		c.logger.Warn("course confirm failed", zap.String("user_id", c.userID()), zap.Error(err))
		c.finish(ctx, StateProposed, keep, err.Error())
		return model.NewAssistantMessage(ConfirmFailedText), model.TextOutcome(ConfirmFailedText), nil
	}

	switch {
	case out.Kind == model.OutcomeCourseConfirmed && out.Confirmed != nil:
		c.finish(ctx, StateIdle, nil, "")
		text := ConfirmedText(*out.Confirmed, keep)
		return model.NewAssistantMessage(text), out, nil
	case out.Kind == model.OutcomeText && legacy.LooksConfirmed(out.Text):
		c.finish(ctx, StateIdle, nil, "")
		return model.NewAssistantMessage(out.Text), out, nil
	default:
		// The server answered but did not report success; keep the draft.
		c.finish(ctx, StateProposed, keep, "unconfirmed")
		return model.NewAssistantMessage(outcomeText(out)), out, nil
	}
}

// Abort discards the pending proposal without any network call.
func (c *Controller) Abort(ctx context.Context) (model.Message, error) {
	c.mu.Lock()
	if c.state == StateBusy {
		c.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	if c.state != StateProposed {
		c.mu.Unlock()
		return model.Message{}, ErrNoProposal
	}
	c.mu.Unlock()

	c.finish(ctx, StateIdle, nil, "aborted")
	return model.NewAssistantMessage(AbortedText), nil
}

// Reset forces the workflow back to Idle, dropping any proposal. Used when
// the surface starts a new chat.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	busy := c.state == StateBusy
	idle := c.state == StateIdle
	c.mu.Unlock()
	if busy {
		return ErrBusy
	}
	if !idle {
		c.finish(ctx, StateIdle, nil, "reset")
	}
	return nil
}

// beginGeneration moves Idle to Busy. A pending proposal counts as busy:
// regenerate is the only way to generate again from Proposed.
// BeginTurn registers a plain chat turn. It fails with ErrBusy unless the
// workflow is Idle, and no generation can start until end is called.
func (c *Controller) BeginTurn() (end func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return nil, ErrBusy
	}
	c.turns++

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.turns--
			c.mu.Unlock()
		})
	}, nil
}

func (c *Controller) beginGeneration(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.turns > 0 {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateBusy
	c.mu.Unlock()

	c.transitioned(ctx, StateIdle, StateBusy, "")
	return nil
}

// beginDecision moves Proposed to Busy and returns the originating prompt.
func (c *Controller) beginDecision(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateBusy {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.state != StateProposed || c.proposal == nil {
		c.mu.Unlock()
		return "", ErrNoProposal
	}
	prompt := c.proposal.OriginatingPrompt
	c.state = StateBusy
	c.mu.Unlock()

	c.transitioned(ctx, StateProposed, StateBusy, "")
	return prompt, nil
}

func (c *Controller) finish(ctx context.Context, to State, proposal *model.CourseProposal, reason string) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.proposal = proposal
	c.mu.Unlock()

	c.transitioned(ctx, from, to, reason)
}

func (c *Controller) transitioned(ctx context.Context, from, to State, reason string) {
	metrics.RecordTransition(from.String(), to.String())
	c.logger.Debug("course workflow transition",
		zap.String("user_id", c.userID()),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if c.events == nil {
		return
	}
	c.events.PublishEvent(ctx, &model.AssistantEvent{
		ID:     uuid.Must(uuid.NewV7()).String(),
		UserID: c.userID(),
		Type:   model.EventTypeWorkflow,
		Reason: reason,
		Metadata: map[string]any{
			"from": from.String(),
			"to":   to.String(),
		},
		CreatedAt: time.Now(),
	})
}

func (c *Controller) userID() string {
	if c.profile == nil {
		return ""
	}
	return c.profile().UserID
}

func outcomeText(out model.Outcome) string {
	if out.Kind == model.OutcomeCourseConfirmed && out.Confirmed != nil {
		return ConfirmedText(*out.Confirmed, nil)
	}
	return out.Text
}

// ConfirmedText formats the success message for a saved course, naming the
// created course id when the server returned one.
func ConfirmedText(r model.ConfirmResult, p *model.CourseProposal) string {
	title := r.Title
	if title == "" && p != nil {
		title = p.Payload.Title
	}
	text := "✅ Your course has been confirmed and saved!"
	if title != "" {
		text = fmt.Sprintf("✅ Your course %q has been confirmed and saved!", title)
	}
	if r.CourseID != "" {
		text += fmt.Sprintf(" Course ID: %s", r.CourseID)
	}
	return text
}
