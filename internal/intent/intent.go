// Package intent classifies raw chat input into commands and free chat.
package intent

import (
	"strings"
	"unicode"
)

// Kind is the classified purpose of a message.
type Kind int

const (
	KindFreeChat Kind = iota
	KindHelp
	KindExplain
	KindGenerateCourse
	KindConfirmCourse
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindExplain:
		return "explain"
	case KindGenerateCourse:
		return "generate_course"
	case KindConfirmCourse:
		return "confirm_course"
	default:
		return "free_chat"
	}
}

// Intent is a classified message. Topic is set for Explain and
// GenerateCourse, Text for FreeChat.
type Intent struct {
	Kind  Kind
	Topic string
	Text  string
}

const (
	cmdHelp     = "/help"
	cmdGenerate = "/generate"
	cmdExplain  = "/explain"
	cmdConfirm  = "/confirm"
)

// Classify maps raw input to an Intent. It never fails: empty topics and
// empty messages are valid intents that the executor rejects later.
func Classify(raw string) Intent {
	normalized := normalize(raw)
	lower := strings.ToLower(normalized)

	switch {
	case lower == cmdHelp:
		return Intent{Kind: KindHelp}
	case strings.HasPrefix(lower, cmdGenerate):
		return Intent{Kind: KindGenerateCourse, Topic: argument(normalized, cmdGenerate)}
	case strings.HasPrefix(lower, cmdExplain):
		return Intent{Kind: KindExplain, Topic: argument(normalized, cmdExplain)}
	case lower == cmdConfirm:
		return Intent{Kind: KindConfirmCourse}
	default:
		return Intent{Kind: KindFreeChat, Text: raw}
	}
}

// normalize trims the input and, for commands, drops whitespace between the
// slash and the command word. Inner spacing is left alone.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + strings.TrimLeftFunc(s[1:], unicode.IsSpace)
}

// argument returns the text after the command token with original casing.
// The command prefix is ASCII, so byte offsets in the lowercased and
// original strings agree.
func argument(normalized, cmd string) string {
	return strings.TrimSpace(normalized[len(cmd):])
}

var generationTriggers = []string{
	"generate",
	"create a course",
	"build a course",
	"make a course",
}

// LooksLikeGeneration reports whether raw text is probably a course
// generation request. It drives the optimistic placeholder and the workflow
// Busy state, not routing.
func LooksLikeGeneration(raw string) bool {
	lower := strings.ToLower(raw)
	for _, t := range generationTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
