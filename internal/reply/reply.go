// Package reply classifies raw backend replies into text or course payloads.
package reply

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/capitalize-ai/learning-assistant/internal/model"
)

// Kind discriminates a normalized reply.
type Kind int

const (
	KindText Kind = iota
	KindCourse
)

// Reply is a normalized backend reply.
type Reply struct {
	Kind   Kind
	Text   string
	Course *model.CoursePayload
}

// envelope is the explicit discriminated form:
// {"kind":"text","text":"..."} or {"kind":"course","payload":{...}}.
type envelope struct {
	Kind    string          `json:"kind"`
	Text    *string         `json:"text"`
	Payload json.RawMessage `json:"payload"`
}

var (
	titleKeys       = []string{"title", "courseTitle", "name"}
	descriptionKeys = []string{"description", "courseDescription", "summary"}
)

// Normalize classifies raw. An explicit envelope wins; otherwise an object
// with title-like and description-like fields is a course; a JSON string is
// unwrapped and checked once more; anything else is text.
func Normalize(raw json.RawMessage) Reply {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Reply{Kind: KindText}
	}

	if r, ok := fromStructured(raw); ok {
		return r
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return FromString(s)
	}

	return Reply{Kind: KindText, Text: string(raw)}
}

// FromString classifies a reply that arrived as a plain string, which may
// itself hold JSON. Unparseable or shapeless strings stay text unchanged.
func FromString(s string) Reply {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		if r, ok := fromStructured(json.RawMessage(trimmed)); ok {
			return r
		}
	}
	return Reply{Kind: KindText, Text: s}
}

func fromStructured(raw json.RawMessage) (Reply, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return Reply{}, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		switch env.Kind {
		case "text":
			if env.Text != nil {
				return Reply{Kind: KindText, Text: *env.Text}, true
			}
		case "course":
			if course, ok := parseCourse(env.Payload); ok {
				return Reply{Kind: KindCourse, Course: course}, true
			}
		}
	}

	if course, ok := parseCourse(raw); ok {
		return Reply{Kind: KindCourse, Course: course}, true
	}
	return Reply{}, false
}

func parseCourse(raw json.RawMessage) (*model.CoursePayload, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	title, ok := firstString(fields, titleKeys)
	if !ok {
		return nil, false
	}
	description, ok := firstString(fields, descriptionKeys)
	if !ok {
		return nil, false
	}

	course := &model.CoursePayload{
		Title:       title,
		Description: description,
		Raw:         append(json.RawMessage(nil), raw...),
	}
	if m, ok := fields["modules"]; ok {
		var modules []model.Module
		if err := json.Unmarshal(m, &modules); err == nil {
			course.Modules = modules
		}
	}
	return course, true
}

func firstString(fields map[string]json.RawMessage, keys []string) (string, bool) {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

// Confirmation is a normalized confirm-endpoint result.
type Confirmation struct {
	Confirmed bool
	Result    model.ConfirmResult
	Text      string
}

// NormalizeConfirm classifies a confirm result. An object carrying an id is
// a confirmation; a string is text for the caller to interpret.
func NormalizeConfirm(raw json.RawMessage) Confirmation {
	raw = bytes.TrimSpace(raw)

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Confirmation{Text: s}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Confirmation{Text: string(raw)}
	}

	id, hasID := firstID(fields, []string{"courseId", "id", "course_id"})
	title, _ := firstString(fields, titleKeys)
	message, _ := firstString(fields, []string{"message", "text"})
	if !hasID {
		if c, ok := fields["course"]; ok {
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(c, &nested); err == nil {
				id, hasID = firstID(nested, []string{"id", "courseId"})
				if title == "" {
					title, _ = firstString(nested, titleKeys)
				}
			}
		}
	}
	if !hasID {
		if message != "" {
			return Confirmation{Text: message}
		}
		return Confirmation{Text: string(raw)}
	}

	return Confirmation{
		Confirmed: true,
		Result:    model.ConfirmResult{CourseID: id, Title: title, Message: message},
	}
}

// firstID accepts string or numeric ids.
func firstID(fields map[string]json.RawMessage, keys []string) (string, bool) {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return s, true
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String(), true
		}
	}
	return "", false
}
