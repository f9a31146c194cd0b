package course

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []intent.Intent
	results []func() (model.Outcome, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, in intent.Intent, p legacy.Profile) (model.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if len(f.results) == 0 {
		return model.Outcome{}, errors.New("unexpected call")
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next()
}

func (f *fakeExecutor) queue(fns ...func() (model.Outcome, error)) {
	f.mu.Lock()
	f.results = append(f.results, fns...)
	f.mu.Unlock()
}

type sinkFunc func(*model.AssistantEvent)

func (s sinkFunc) PublishEvent(ctx context.Context, e *model.AssistantEvent) { s(e) }

func proposal(title, prompt string) model.Outcome {
	return model.ProposalOutcome(model.CourseProposal{
		Payload:           model.CoursePayload{Title: title, Description: "about " + title},
		OriginatingPrompt: prompt,
	})
}

func returns(out model.Outcome, err error) func() (model.Outcome, error) {
	return func() (model.Outcome, error) { return out, err }
}

func newTestController(exec Executor, timeout time.Duration) *Controller {
	profile := func() legacy.Profile { return legacy.Profile{UserID: "u1", Skills: []string{"go"}} }
	return NewController(exec, profile, Config{Timeout: timeout}, nil, logger.Nop())
}

func run(out model.Outcome, err error) Run {
	return func(ctx context.Context) (model.Outcome, error) { return out, err }
}

func TestGenerateProposalThenConfirm(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec, time.Second)

	msg, _, err := c.Generate(context.Background(), run(proposal("Tidal Energy 101", "tidal energy"), nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.State() != StateProposed {
		t.Fatalf("state = %s, want proposed", c.State())
	}
	if !msg.IsRichContent || !strings.Contains(msg.Text, "Tidal Energy 101") {
		t.Fatalf("unexpected proposal message %+v", msg)
	}

	exec.queue(returns(model.ConfirmedOutcome(model.ConfirmResult{CourseID: "c-42"}), nil))
	msg, out, err := c.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Kind != model.OutcomeCourseConfirmed {
		t.Fatalf("outcome = %s", out.Kind)
	}
	if !strings.Contains(msg.Text, "c-42") || !strings.Contains(msg.Text, "Tidal Energy 101") {
		t.Fatalf("success message should name the course: %q", msg.Text)
	}
	if c.State() != StateIdle || c.Proposal() != nil {
		t.Fatal("confirm success must clear the proposal")
	}
	if exec.calls[0].Kind != intent.KindConfirmCourse {
		t.Fatalf("unexpected call %+v", exec.calls[0])
	}
}

func TestConfirmFailureKeepsProposal(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec, time.Second)
	c.Generate(context.Background(), run(proposal("Go", "go basics"), nil))

	exec.queue(returns(model.Outcome{}, errors.New("502")))
	msg, _, err := c.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if msg.Text != ConfirmFailedText {
		t.Fatalf("message = %q", msg.Text)
	}
	if c.State() != StateProposed {
		t.Fatalf("state = %s, want proposed", c.State())
	}
	if p := c.Proposal(); p == nil || p.Payload.Title != "Go" {
		t.Fatalf("proposal lost: %+v", p)
	}

	// Retrying works from the retained proposal.
	exec.queue(returns(model.TextOutcome(legacy.ConfirmSuccessText), nil))
	if _, _, err := c.Confirm(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %s after retry", c.State())
	}
}

func TestConfirmUnrecognizedTextKeepsProposal(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec, time.Second)
	c.Generate(context.Background(), run(proposal("Go", "go basics"), nil))

	exec.queue(returns(model.TextOutcome("quota exceeded"), nil))
	msg, _, _ := c.Confirm(context.Background())
	if msg.Text != "quota exceeded" || c.State() != StateProposed {
		t.Fatalf("got %q in state %s", msg.Text, c.State())
	}
}

func TestAbortClearsWithoutNetwork(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec, time.Second)
	c.Generate(context.Background(), run(proposal("Go", "go basics"), nil))

	msg, err := c.Abort(context.Background())
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if msg.Text != AbortedText {
		t.Fatalf("message = %q", msg.Text)
	}
	if c.State() != StateIdle || c.Proposal() != nil {
		t.Fatal("abort must clear the proposal")
	}
	if len(exec.calls) != 0 {
		t.Fatalf("abort made %d calls", len(exec.calls))
	}
}

func TestGenerateTextOrErrorReturnsIdle(t *testing.T) {
	c := newTestController(&fakeExecutor{}, time.Second)

	msg, _, err := c.Generate(context.Background(), run(model.TextOutcome("here is some advice"), nil))
	if err != nil || msg.Text != "here is some advice" || c.State() != StateIdle {
		t.Fatalf("text: %q %v %s", msg.Text, err, c.State())
	}

	msg, _, err = c.Generate(context.Background(), run(model.Outcome{}, errors.New("boom")))
	if err != nil || msg.Text != GenerationFailedText || c.State() != StateIdle {
		t.Fatalf("error: %q %v %s", msg.Text, err, c.State())
	}
}

func TestGenerateTimeout(t *testing.T) {
	c := newTestController(&fakeExecutor{}, 10*time.Millisecond)

	msg, _, err := c.Generate(context.Background(), func(ctx context.Context) (model.Outcome, error) {
		<-ctx.Done()
		return model.Outcome{}, ctx.Err()
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Text != TimeoutText || c.State() != StateIdle {
		t.Fatalf("got %q in state %s", msg.Text, c.State())
	}
}

func TestRegenerate(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestController(exec, time.Second)
	c.Generate(context.Background(), run(proposal("Draft 1", "tidal energy"), nil))

	exec.queue(returns(proposal("Draft 2", "tidal energy"), nil))
	if _, _, err := c.Regenerate(context.Background(), nil); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if got := exec.calls[0]; got.Kind != intent.KindGenerateCourse || got.Topic != "tidal energy" {
		t.Fatalf("regenerate should resubmit the originating prompt, got %+v", got)
	}
	if p := c.Proposal(); p == nil || p.Payload.Title != "Draft 2" {
		t.Fatalf("proposal not replaced: %+v", p)
	}

	exec.queue(returns(model.Outcome{}, errors.New("down")))
	c.Regenerate(context.Background(), nil)
	if c.State() != StateIdle || c.Proposal() != nil {
		t.Fatalf("failed regenerate should drop to idle, state %s", c.State())
	}
}

func TestActionsRejectedOutOfState(t *testing.T) {
	c := newTestController(&fakeExecutor{}, time.Second)

	if _, _, err := c.Confirm(context.Background()); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("confirm from idle: %v", err)
	}
	if _, err := c.Abort(context.Background()); !errors.Is(err, ErrNoProposal) {
		t.Fatalf("abort from idle: %v", err)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Generate(context.Background(), func(ctx context.Context) (model.Outcome, error) {
			close(started)
			<-release
			return proposal("Go", "go"), nil
		})
	}()
	<-started

	if c.State() != StateBusy {
		t.Fatalf("state = %s, want busy", c.State())
	}
	if _, _, err := c.Generate(context.Background(), run(model.TextOutcome("x"), nil)); !errors.Is(err, ErrBusy) {
		t.Fatalf("second generate: %v", err)
	}
	if _, err := c.Abort(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("abort while busy: %v", err)
	}
	close(release)
	<-done

	if _, _, err := c.Generate(context.Background(), run(model.TextOutcome("x"), nil)); !errors.Is(err, ErrBusy) {
		t.Fatalf("generate while proposed: %v", err)
	}
}

func TestChatTurnBlocksGeneration(t *testing.T) {
	c := newTestController(&fakeExecutor{}, time.Second)

	end, err := c.BeginTurn()
	if err != nil {
		t.Fatalf("BeginTurn: %v", err)
	}
	if _, _, err := c.Generate(context.Background(), run(proposal("Go", "go"), nil)); !errors.Is(err, ErrBusy) {
		t.Fatalf("generate during a chat turn: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %s, want idle", c.State())
	}
	end()
	end()

	if _, _, err := c.Generate(context.Background(), run(proposal("Go", "go"), nil)); err != nil {
		t.Fatalf("generate after the turn ended: %v", err)
	}
	if _, err := c.BeginTurn(); !errors.Is(err, ErrBusy) {
		t.Fatalf("chat turn while proposed: %v", err)
	}
}

func TestBeginTurnRejectedWhileGenerating(t *testing.T) {
	c := newTestController(&fakeExecutor{}, time.Second)
	entered, release := make(chan struct{}), make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Generate(context.Background(), func(ctx context.Context) (model.Outcome, error) {
			close(entered)
			<-release
			return model.TextOutcome("no course"), nil
		})
	}()
	<-entered

	if _, err := c.BeginTurn(); !errors.Is(err, ErrBusy) {
		t.Fatalf("chat turn while busy: %v", err)
	}
	close(release)
	<-done
	if _, err := c.BeginTurn(); err != nil {
		t.Fatalf("chat turn after generation: %v", err)
	}
}

func TestTransitionsPublished(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	sink := sinkFunc(func(e *model.AssistantEvent) {
		mu.Lock()
		seen = append(seen, e.Metadata["from"].(string)+">"+e.Metadata["to"].(string))
		mu.Unlock()
	})
	profile := func() legacy.Profile { return legacy.Profile{UserID: "u1"} }
	c := NewController(&fakeExecutor{}, profile, Config{}, sink, logger.Nop())

	c.Generate(context.Background(), run(proposal("Go", "go"), nil))
	c.Abort(context.Background())

	want := []string{"idle>busy", "busy>proposed", "proposed>idle"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
}

func TestRenderProposalEscapes(t *testing.T) {
	out := RenderProposal(model.CourseProposal{Payload: model.CoursePayload{
		Title:       "<script>x</script>",
		Description: "a & b",
		Modules: []model.Module{
			{Title: "Intro", Lessons: []model.Lesson{{Title: "one"}, {Title: "two"}}},
		},
	}})
	if strings.Contains(out, "<script>") {
		t.Fatalf("title not escaped: %s", out)
	}
	for _, want := range []string{"a &amp; b", "<li>Intro", "2 lessons", ProposalHint} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
