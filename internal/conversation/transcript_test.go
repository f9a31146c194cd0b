package conversation

import (
	"fmt"
	"testing"

	"github.com/capitalize-ai/learning-assistant/internal/model"
)

func TestTranscriptAppendAndReset(t *testing.T) {
	tr := NewTranscript("welcome")
	if tr.Len() != 1 || tr.Messages()[0].Sender != model.SenderAssistant {
		t.Fatalf("greeting missing: %+v", tr.Messages())
	}

	var observed []string
	tr.SetObserver(func(m model.Message) { observed = append(observed, m.Text) })

	tr.Append(model.NewUserMessage("one"))
	tr.Append(model.NewAssistantMessage("two"))
	if tr.Len() != 3 {
		t.Fatalf("len = %d", tr.Len())
	}
	if len(observed) != 2 || observed[1] != "two" {
		t.Fatalf("observer saw %v", observed)
	}

	tr.Reset(model.NewAssistantMessage("fresh"))
	msgs := tr.Messages()
	if len(msgs) != 1 || msgs[0].Text != "fresh" {
		t.Fatalf("reset failed: %+v", msgs)
	}
}

func TestTranscriptMessagesIsACopy(t *testing.T) {
	tr := NewTranscript("")
	tr.Append(model.NewUserMessage("a"))

	msgs := tr.Messages()
	msgs[0].Text = "changed"
	if tr.Messages()[0].Text != "a" {
		t.Fatal("Messages must not expose internal storage")
	}
}

func TestTranscriptSubscribe(t *testing.T) {
	tr := NewTranscript("")
	ch, cancel := tr.Subscribe()

	tr.Append(model.NewUserMessage("hi"))
	ev := <-ch
	if ev.Message.Text != "hi" || ev.Reset {
		t.Fatalf("unexpected event %+v", ev)
	}

	tr.Reset(model.NewAssistantMessage("a"), model.NewAssistantMessage("b"))
	ev = <-ch
	if !ev.Reset || len(ev.Messages) != 2 || ev.Messages[1].Text != "b" {
		t.Fatalf("unexpected reset event %+v", ev)
	}

	tr.Reset()
	if ev = <-ch; !ev.Reset || len(ev.Messages) != 0 {
		t.Fatalf("empty reset = %+v", ev)
	}

	cancel()
	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
	tr.Append(model.NewUserMessage("after cancel"))
}

func TestTranscriptResetLongerThanBuffer(t *testing.T) {
	tr := NewTranscript("")
	ch, cancel := tr.Subscribe()
	defer cancel()

	history := make([]model.Message, subscriberBuffer+36)
	for i := range history {
		history[i] = model.NewUserMessage(fmt.Sprintf("m%d", i))
	}
	tr.Reset(history...)
	tr.Append(model.NewAssistantMessage("after"))

	ev := <-ch
	if !ev.Reset || len(ev.Messages) != len(history) {
		t.Fatalf("reset delivered %d of %d messages", len(ev.Messages), len(history))
	}
	if last := ev.Messages[len(history)-1].Text; last != fmt.Sprintf("m%d", len(history)-1) {
		t.Fatalf("last replayed message = %q", last)
	}
	if ev = <-ch; ev.Reset || ev.Message.Text != "after" {
		t.Fatalf("append after reset = %+v", ev)
	}

	history[0].Text = "mutated"
	if tr.Messages()[0].Text != "m0" {
		t.Fatal("Reset must copy its input")
	}
}

func TestSessionClearIf(t *testing.T) {
	s := NewSession("u1")
	s.Assign("abc")
	if s.clearIf("other") || s.ConversationID() != "abc" {
		t.Fatal("clearIf must ignore other ids")
	}
	if !s.clearIf("abc") || s.ConversationID() != "" {
		t.Fatal("clearIf must clear the matching id")
	}
}
