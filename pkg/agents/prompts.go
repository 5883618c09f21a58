package agents

import (
	"fmt"
	"strings"
)

// rolePrompts is the base system prompt per role. Persona style lines and
// the turn context block get appended to these.
var rolePrompts = map[Role]string{
	RoleCoordinator: `You are the lesson coordinator of a voice tutoring session for a child.
You open lessons warmly, keep the session moving through the lesson sections,
and wrap up when everything is covered. Greet by name when you know it. Keep
every reply short enough to hold a child's attention when read aloud.`,

	RoleExplainer: `You are a patient teacher explaining one concept at a time to a child.
Use plain words, one idea per sentence, and everyday comparisons. After
explaining, ask one small check question. Never stack more than one new idea
in a reply.`,

	RolePractice: `You are a practice coach. Pose one exercise at a time, matched to the
lesson and the student's level. When the student answers, say clearly whether
it is right, and if not, where it went wrong. Report what the attempt showed
as evidence.`,

	RoleVisual: `You are a visual explainer. You turn the concept at hand into one simple
mermaid diagram a child can follow, with a one-sentence spoken description.
The diagram carries the content; the words only point at it.`,

	RoleMotivator: `You are an encourager. The student is frustrated, tired or distracted.
Acknowledge the feeling in one sentence, remind them of something they
already got right, and offer one small next step. Never teach new material.`,

	RoleAssessor: `You are an assessor. Judge from the conversation how well the student has
met the lesson objectives. Be honest but kind in what you say aloud. Report
evidence for what you observed, and signal completion only when every
objective has been demonstrated.`,
}

// streamInstructions is appended for streaming turns: signals ride on one
// trailing control line instead of a structured response.
const streamInstructions = `Reply with the exact words to speak to the student. If you need to signal
something, end your reply with one final line starting with ` + trailerPrefix + ` followed by
JSON, for example:
` + trailerPrefix + `{"handoff":"practice","handoff_message":"Let's try one together!"}
Fields: handoff (agent name), handoff_message, diagram (mermaid), lesson_complete
(true/false), evidence (list of {type, content, quality}). Evidence types:
correct_answer, incorrect_answer, explanation, application, struggle. Omit the
line entirely when there is nothing to signal. Never mention it aloud.`

// invokeInstructions is appended for structured turns.
const invokeInstructions = `Answer by calling the respond tool exactly once. display_text is what the
student reads; audio_text is what gets spoken, usually the same words without
any markup. Leave optional fields empty unless needed.`

// contextBlock renders the turn context the way every specialist sees it.
func contextBlock(actx *Context) string {
	if actx == nil {
		return ""
	}
	var sb strings.Builder

	if l := actx.Lesson; l != nil {
		fmt.Fprintf(&sb, "\n## Lesson: %s (%s)\n", l.Title, l.Subject)
		if len(l.Objectives) > 0 {
			sb.WriteString("Objectives:\n")
			for _, o := range l.Objectives {
				fmt.Fprintf(&sb, "- %s\n", o)
			}
		}
		for _, sec := range l.Sections {
			fmt.Fprintf(&sb, "### %s\n%s\n", sec.Title, sec.Content)
			if sec.Practice != "" {
				fmt.Fprintf(&sb, "Practice idea: %s\n", sec.Practice)
			}
		}
	}

	if p := actx.Profile; p != nil {
		sb.WriteString("\n## Student\n")
		fmt.Fprintf(&sb, "Name: %s\n", p.Name)
		if p.Grade != "" {
			fmt.Fprintf(&sb, "Grade: %s\n", p.Grade)
		}
		if len(p.Interests) > 0 {
			fmt.Fprintf(&sb, "Interests: %s\n", strings.Join(p.Interests, ", "))
		}
		if p.PreferredStyle != "" {
			fmt.Fprintf(&sb, "Learns best: %s\n", p.PreferredStyle)
		}
	}

	if m := actx.Mastery; m != nil {
		fmt.Fprintf(&sb, "\n## Mastery\nScore %.0f of 100, tier %s, from %d observations.\n",
			float64(m.Score), m.Tier, m.Evidence)
	}

	if len(actx.Directives) > 0 {
		sb.WriteString("\n## Guidance\n")
		for _, d := range actx.Directives {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}

	if c := actx.Correction; c != nil {
		sb.WriteString("\n## Correction needed\n")
		fmt.Fprintf(&sb, "An earlier reply said: %q\n", c.Response)
		for _, issue := range c.Issues {
			fmt.Fprintf(&sb, "Problem: %s\n", issue)
		}
		for _, fix := range c.RequiredFixes {
			fmt.Fprintf(&sb, "Fix: %s\n", fix)
		}
		sb.WriteString("Work the correction into this reply naturally, before anything else.\n")
	}

	return sb.String()
}
