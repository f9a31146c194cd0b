package model

import "encoding/json"

// Lesson is one lesson inside a generated course module.
type Lesson struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// Module groups lessons in a generated course.
type Module struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons,omitempty"`
}

// CoursePayload is a generated course. Only Title and Description are
// interpreted; Raw keeps the payload exactly as the backend sent it.
type CoursePayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Modules     []Module        `json:"modules,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// CourseProposal is a generated, not yet persisted course awaiting a decision.
type CourseProposal struct {
	Payload CoursePayload `json:"payload"`

	// OriginatingPrompt is the topic that produced the payload; regenerate
	// resubmits it verbatim.
	OriginatingPrompt string `json:"originating_prompt"`
}

// ConfirmResult is the structured result of confirming a course.
type ConfirmResult struct {
	CourseID string `json:"courseId,omitempty"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
}
