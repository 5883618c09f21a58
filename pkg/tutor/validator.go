package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/store"
)

// Verdict is the checker's judgment of one delivered reply.
type Verdict struct {
	Valid         bool     `json:"valid"`
	Issues        []string `json:"issues,omitempty"`
	RequiredFixes []string `json:"required_fixes,omitempty"`
}

var checkTool = llm.MustNewFuncTool[Verdict]("report_check",
	"Report whether the tutoring reply is accurate and appropriate.")

// Validator fact-checks replies after delivery. Findings become pending
// corrections, never retractions.
type Validator struct {
	gen   llm.Generator
	model string
}

const defaultValidatorModel = "gemini/gemini-2.5-flash"

func NewValidator(gen llm.Generator, model string) *Validator {
	if model == "" {
		model = defaultValidatorModel
	}
	return &Validator{gen: gen, model: model}
}

// Exempt reports whether a role's replies skip checking. Encouragement and
// question-asking carry no factual claims worth a model call.
func Exempt(role agents.Role) bool {
	return role == agents.RoleMotivator || role == agents.RoleAssessor
}

func (v *Validator) generator() llm.Generator {
	if v.gen != nil {
		return v.gen
	}
	return llm.DefaultMux
}

// Check runs one verification call over a delivered reply.
func (v *Validator) Check(ctx context.Context, lesson *store.Lesson, userMsg string, resp *agents.Response) (*Verdict, error) {
	b := &llm.RequestBuilder{}
	b.PromptText("", checkPrompt(lesson))
	b.UserText("", fmt.Sprintf("Student: %s\n\nTutor (%s): %s",
		userMsg, resp.AgentName, resp.DisplayText))

	_, call, err := v.generator().Invoke(ctx, v.model, b.Build(), checkTool)
	if err != nil {
		return nil, fmt.Errorf("tutor: validate: %w", err)
	}
	out, err := call.Invoke(ctx)
	if err != nil {
		return nil, fmt.Errorf("tutor: validate: %w", err)
	}
	verdict, ok := out.(*Verdict)
	if !ok {
		return nil, fmt.Errorf("tutor: validate: unexpected tool output %T", out)
	}
	return verdict, nil
}

func checkPrompt(lesson *store.Lesson) string {
	var b strings.Builder
	b.WriteString("You review a tutor's reply to a young student. Flag only real problems: ")
	b.WriteString("factual or arithmetic errors, content inappropriate for the age group, ")
	b.WriteString("or contradictions of the lesson material. Style is not your concern. ")
	b.WriteString("Call report_check with your verdict.")
	if lesson != nil {
		fmt.Fprintf(&b, "\n\nLesson: %s (%s)", lesson.Title, lesson.Subject)
		if len(lesson.Objectives) > 0 {
			b.WriteString("\nObjectives:")
			for _, o := range lesson.Objectives {
				b.WriteString("\n- " + o)
			}
		}
	}
	return b.String()
}
