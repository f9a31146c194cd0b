package model

// OutcomeKind discriminates the result of a chat turn.
type OutcomeKind string

const (
	OutcomeText            OutcomeKind = "text"
	OutcomeCourseProposal  OutcomeKind = "course_proposal"
	OutcomeCourseConfirmed OutcomeKind = "course_confirmed"
)

// Outcome is the result of a chat turn: exactly one of Text, Proposal or
// Confirmed is meaningful, selected by Kind.
type Outcome struct {
	Kind      OutcomeKind     `json:"kind"`
	Text      string          `json:"text,omitempty"`
	Proposal  *CourseProposal `json:"proposal,omitempty"`
	Confirmed *ConfirmResult  `json:"confirmed,omitempty"`

	// Degraded is set when the reply came from the fallback path.
	Degraded bool `json:"degraded,omitempty"`
}

// TextOutcome wraps a plain reply.
func TextOutcome(text string) Outcome {
	return Outcome{Kind: OutcomeText, Text: text}
}

// ProposalOutcome wraps a course proposal.
func ProposalOutcome(p CourseProposal) Outcome {
	return Outcome{Kind: OutcomeCourseProposal, Proposal: &p}
}

// ConfirmedOutcome wraps a confirmed course.
func ConfirmedOutcome(r ConfirmResult) Outcome {
	return Outcome{Kind: OutcomeCourseConfirmed, Confirmed: &r}
}
