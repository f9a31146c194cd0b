package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/capitalize-ai/learning-assistant/internal/assistant"
	"github.com/capitalize-ai/learning-assistant/internal/conversation"
	"github.com/capitalize-ai/learning-assistant/internal/course"
	"github.com/capitalize-ai/learning-assistant/internal/intent"
	"github.com/capitalize-ai/learning-assistant/internal/model"
)

const replHelp = `Commands:
  :confirm             save the drafted course
  :regenerate          draft the course again
  :abort               discard the drafted course
  :new                 start a new conversation
  :list                list your conversations
  :open <id>           switch to a conversation
  :rename <id> <name>  rename a conversation
  :delete <id>         delete a conversation
  :help                show this message
  :quit                leave`

// chatSurface is the part of a surface the REPL drives.
type chatSurface interface {
	Send(ctx context.Context, raw string) (*model.SendMessageResponse, error)
	Confirm(ctx context.Context) (*model.SendMessageResponse, error)
	Regenerate(ctx context.Context) (*model.SendMessageResponse, error)
	Abort(ctx context.Context) (*model.SendMessageResponse, error)
	NewChat(ctx context.Context) error
	Conversations(ctx context.Context) ([]model.ConversationSummary, error)
	OpenConversation(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	RenameConversation(ctx context.Context, conversationID, name string) (bool, error)
	DeleteConversation(ctx context.Context, conversationID string) (bool, error)
	Snapshot() assistant.Snapshot
}

type command struct {
	name string
	args []string
	rest string
}

// parseCommand splits a ':' command line. rest is everything after the
// first argument, so names may contain spaces.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return command{}, false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return command{}, false
	}
	c := command{name: strings.ToLower(fields[0]), args: fields[1:]}
	if len(c.args) > 1 {
		after := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[1:]), fields[0]))
		c.rest = strings.TrimSpace(strings.TrimPrefix(after, c.args[0]))
	}
	return c, true
}

type repl struct {
	surface chatSurface
	in      io.Reader
	out     io.Writer
}

func newREPL(surface chatSurface, in io.Reader, out io.Writer) *repl {
	return &repl{surface: surface, in: in, out: out}
}

// Run reads lines until EOF or :quit.
func (r *repl) Run(ctx context.Context) error {
	for _, m := range r.surface.Snapshot().Messages {
		r.print(m)
	}

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, r.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := scanner.Text()

		if c, ok := parseCommand(line); ok {
			if c.name == "quit" || c.name == "q" {
				return nil
			}
			r.report(r.run(ctx, c))
			continue
		}

		if intent.LooksLikeGeneration(line) {
			fmt.Fprintln(r.out, conversation.GenerationPlaceholderText)
		}
		resp, err := r.surface.Send(ctx, line)
		r.report(err)
		r.printResponse(resp)
	}
}

func (r *repl) run(ctx context.Context, c command) error {
	switch c.name {
	case "help", "h":
		fmt.Fprintln(r.out, replHelp)
		return nil

	case "confirm":
		resp, err := r.surface.Confirm(ctx)
		r.printResponse(resp)
		return err

	case "regenerate":
		fmt.Fprintln(r.out, conversation.GenerationPlaceholderText)
		resp, err := r.surface.Regenerate(ctx)
		r.printResponse(resp)
		return err

	case "abort":
		resp, err := r.surface.Abort(ctx)
		r.printResponse(resp)
		return err

	case "new":
		if err := r.surface.NewChat(ctx); err != nil {
			return err
		}
		for _, m := range r.surface.Snapshot().Messages {
			r.print(m)
		}
		return nil

	case "list":
		list, err := r.surface.Conversations(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(r.out, "No conversations yet.")
			return nil
		}
		active := r.surface.Snapshot().ConversationID
		for _, c := range list {
			marker := " "
			if c.ConversationID == active {
				marker = "*"
			}
			name := c.Name
			if name == "" {
				name = "(untitled)"
			}
			fmt.Fprintf(r.out, "%s %s  %s  %d messages\n", marker, c.ConversationID, name, c.MessageCount)
		}
		return nil

	case "open":
		if len(c.args) != 1 {
			return errors.New("usage: :open <id>")
		}
		msgs, _, err := r.surface.OpenConversation(ctx, c.args[0])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			r.print(m)
		}
		return nil

	case "rename":
		if len(c.args) < 2 {
			return errors.New("usage: :rename <id> <name>")
		}
		ok, err := r.surface.RenameConversation(ctx, c.args[0], c.rest)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("conversation %s was not renamed", c.args[0])
		}
		fmt.Fprintf(r.out, "Renamed %s to %q.\n", c.args[0], c.rest)
		return nil

	case "delete":
		if len(c.args) != 1 {
			return errors.New("usage: :delete <id>")
		}
		ok, err := r.surface.DeleteConversation(ctx, c.args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("conversation %s was not deleted", c.args[0])
		}
		fmt.Fprintf(r.out, "Deleted %s.\n", c.args[0])
		return nil

	default:
		return fmt.Errorf("unknown command :%s (try :help)", c.name)
	}
}

func (r *repl) prompt() string {
	switch r.surface.Snapshot().State {
	case course.StateProposed:
		return "[:confirm :regenerate :abort] > "
	default:
		return "> "
	}
}

func (r *repl) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, assistant.ErrDecisionPending):
		fmt.Fprintln(r.out, "A course draft is waiting: use :confirm, :regenerate or :abort first.")
	case errors.Is(err, course.ErrNoProposal):
		fmt.Fprintln(r.out, "There is no course draft to act on.")
	default:
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
}

func (r *repl) printResponse(resp *model.SendMessageResponse) {
	if resp == nil {
		return
	}
	for _, m := range resp.Messages {
		if m.Sender == model.SenderAssistant {
			r.print(m)
		}
	}
}

var (
	blockTag = regexp.MustCompile(`(?i)</?(div|h[1-6]|p|ol|ul)[^>]*>`)
	itemTag  = regexp.MustCompile(`(?i)<li[^>]*>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
)

func (r *repl) print(m model.Message) {
	text := m.Text
	if m.IsRichContent {
		text = plainText(text)
	}
	if m.Sender == model.SenderUser {
		fmt.Fprintf(r.out, "you: %s\n", text)
		return
	}
	fmt.Fprintf(r.out, "assistant: %s\n", text)
}

// plainText renders rich message markup for a terminal.
func plainText(markup string) string {
	s := itemTag.ReplaceAllString(markup, "\n  • ")
	s = blockTag.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " "))
		}
	}
	return strings.Join(lines, "\n")
}
