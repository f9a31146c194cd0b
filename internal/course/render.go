package course

import (
	"html"
	"strconv"
	"strings"

	"github.com/capitalize-ai/learning-assistant/internal/model"
)

// ProposalHint follows every rendered proposal.
const ProposalHint = "Review the draft above, then choose Confirm to save it, Regenerate for a new draft, or Abort to discard it."

// RenderProposal renders a proposal as markup for a rich assistant message.
// All server-provided text is escaped.
func RenderProposal(p model.CourseProposal) string {
	var b strings.Builder
	b.WriteString(`<div class="course-proposal">`)
	b.WriteString("<h3>📘 ")
	b.WriteString(html.EscapeString(p.Payload.Title))
	b.WriteString("</h3>")
	if p.Payload.Description != "" {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(p.Payload.Description))
		b.WriteString("</p>")
	}
	if len(p.Payload.Modules) > 0 {
		b.WriteString("<ol>")
		for _, m := range p.Payload.Modules {
			b.WriteString("<li>")
			b.WriteString(html.EscapeString(m.Title))
			if n := len(m.Lessons); n > 0 {
				b.WriteString(" <small>(")
				b.WriteString(lessonCount(n))
				b.WriteString(")</small>")
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ol>")
	}
	b.WriteString(`<p class="hint">`)
	b.WriteString(ProposalHint)
	b.WriteString("</p></div>")
	return b.String()
}

func lessonCount(n int) string {
	if n == 1 {
		return "1 lesson"
	}
	return strconv.Itoa(n) + " lessons"
}
