package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

type fakeCompleter struct {
	calls   int
	prompts []string
	reply   string
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeCourses struct {
	generateCalls int
	confirmCalls  int
	lastPrompt    string
	lastSkills    []string
	generateRaw   string
	confirmRaw    string
	err           error
}

func (f *fakeCourses) GenerateCourse(ctx context.Context, userID, prompt string, skills []string) (json.RawMessage, error) {
	f.generateCalls++
	f.lastPrompt = prompt
	f.lastSkills = skills
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.generateRaw), nil
}

func (f *fakeCourses) ConfirmCourse(ctx context.Context, userID string) (json.RawMessage, error) {
	f.confirmCalls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.confirmRaw), nil
}

func newExecutor(c *fakeCompleter, cs *fakeCourses) *Executor {
	return NewExecutor(c, cs, logger.Nop())
}

func TestValidationShortcutsMakeNoCalls(t *testing.T) {
	comp := &fakeCompleter{}
	courses := &fakeCourses{}
	e := newExecutor(comp, courses)

	cases := []struct {
		raw  string
		want string
	}{
		{"/help", HelpText},
		{"/explain", MissingExplainTopicText},
		{"/generate", MissingCourseTopicText},
		{"", EmptyMessageText},
		{"   ", EmptyMessageText},
	}
	for _, tc := range cases {
		out, err := e.Execute(context.Background(), intent.Classify(tc.raw), Profile{UserID: "u1"})
		if err != nil {
			t.Fatalf("Execute(%q): %v", tc.raw, err)
		}
		if out.Kind != model.OutcomeText || out.Text != tc.want {
			t.Fatalf("Execute(%q) = %+v, want text %q", tc.raw, out, tc.want)
		}
	}
	if comp.calls != 0 || courses.generateCalls != 0 || courses.confirmCalls != 0 {
		t.Fatalf("validation should not reach the network: completer=%d generate=%d confirm=%d",
			comp.calls, courses.generateCalls, courses.confirmCalls)
	}
	if !strings.HasPrefix(MissingCourseTopicText, "❌") {
		t.Fatal("validation messages carry the failure marker")
	}
}

func TestGenerateDisabledNeverCallsEndpoint(t *testing.T) {
	courses := &fakeCourses{generateRaw: `{"title":"X","description":"Y"}`}
	e := newExecutor(&fakeCompleter{}, courses)

	for i := 0; i < 3; i++ {
		out, err := e.Execute(context.Background(), intent.Intent{Kind: intent.KindGenerateCourse, Topic: "X"},
			Profile{UserID: "u1", CourseGenDisabled: true})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if out.Text != CourseGenDisabledText {
			t.Fatalf("unexpected outcome %+v", out)
		}
	}
	if courses.generateCalls != 0 {
		t.Fatalf("generation endpoint called %d times", courses.generateCalls)
	}
}

func TestGenerateStructuredBecomesProposal(t *testing.T) {
	courses := &fakeCourses{generateRaw: `{"title":"Tidal Energy 101","description":"..."}`}
	e := newExecutor(&fakeCompleter{}, courses)

	out, err := e.Execute(context.Background(), intent.Classify("/generate a course on tidal energy"),
		Profile{UserID: "u1", Skills: []string{"physics"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Kind != model.OutcomeCourseProposal {
		t.Fatalf("expected proposal, got %+v", out)
	}
	if out.Proposal.Payload.Title != "Tidal Energy 101" {
		t.Fatalf("unexpected payload %+v", out.Proposal.Payload)
	}
	if out.Proposal.OriginatingPrompt != "a course on tidal energy" {
		t.Fatalf("unexpected originating prompt %q", out.Proposal.OriginatingPrompt)
	}
	if courses.lastPrompt != "a course on tidal energy" || len(courses.lastSkills) != 1 {
		t.Fatalf("endpoint got prompt=%q skills=%v", courses.lastPrompt, courses.lastSkills)
	}
}

func TestGenerateJSONStringBecomesProposal(t *testing.T) {
	courses := &fakeCourses{generateRaw: `"{\"title\":\"Go\",\"description\":\"basics\"}"`}
	e := newExecutor(&fakeCompleter{}, courses)

	out, err := e.Execute(context.Background(), intent.Classify("/generate go"), Profile{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Kind != model.OutcomeCourseProposal || out.Proposal.Payload.Title != "Go" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestGeneratePlainStringIsText(t *testing.T) {
	courses := &fakeCourses{generateRaw: `"I could not build that course"`}
	e := newExecutor(&fakeCompleter{}, courses)

	out, err := e.Execute(context.Background(), intent.Classify("/generate go"), Profile{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Kind != model.OutcomeText || out.Text != "I could not build that course" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestGenerateErrorPropagates(t *testing.T) {
	boom := errors.New("down")
	e := newExecutor(&fakeCompleter{}, &fakeCourses{err: boom})

	if _, err := e.Execute(context.Background(), intent.Classify("/generate go"), Profile{}); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind model.OutcomeKind
		wantText string
	}{
		{"structured", `{"courseId":"c1","title":"Go"}`, model.OutcomeCourseConfirmed, ""},
		{"success string", `"Course confirmed successfully"`, model.OutcomeText, ConfirmSuccessText},
		{"other string", `"No course to confirm"`, model.OutcomeText, "No course to confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExecutor(&fakeCompleter{}, &fakeCourses{confirmRaw: tt.raw})
			out, err := e.Execute(context.Background(), intent.Classify("/confirm"), Profile{UserID: "u1"})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if out.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", out.Kind, tt.wantKind)
			}
			if tt.wantKind == model.OutcomeText && out.Text != tt.wantText {
				t.Fatalf("text = %q, want %q", out.Text, tt.wantText)
			}
			if tt.wantKind == model.OutcomeCourseConfirmed && out.Confirmed.CourseID != "c1" {
				t.Fatalf("unexpected confirmation %+v", out.Confirmed)
			}
		})
	}
}

func TestExplainAndChatUseCompleter(t *testing.T) {
	comp := &fakeCompleter{reply: "done"}
	e := newExecutor(comp, &fakeCourses{})

	out, err := e.Execute(context.Background(), intent.Classify("/explain   React hooks"), Profile{})
	if err != nil || out.Text != "done" {
		t.Fatalf("explain = %+v, %v", out, err)
	}
	if !strings.Contains(comp.prompts[0], `"React hooks"`) || !strings.Contains(comp.prompts[0], "example") {
		t.Fatalf("unexpected explain prompt %q", comp.prompts[0])
	}

	out, err = e.Execute(context.Background(), intent.Classify("how are you?"), Profile{})
	if err != nil || out.Text != "done" {
		t.Fatalf("chat = %+v, %v", out, err)
	}
	if !strings.Contains(comp.prompts[1], "briefly and conversationally") || !strings.HasSuffix(comp.prompts[1], "how are you?") {
		t.Fatalf("unexpected chat prompt %q", comp.prompts[1])
	}
}

func TestMissingCompleter(t *testing.T) {
	e := NewExecutor(nil, &fakeCourses{}, logger.Nop())
	if _, err := e.Execute(context.Background(), intent.Classify("hi"), Profile{}); !errors.Is(err, ErrNoCompleter) {
		t.Fatalf("expected ErrNoCompleter, got %v", err)
	}
}
