package tutor

import (
	"context"
	"strings"
	"testing"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/store"
)

func TestExempt(t *testing.T) {
	exempt := map[agents.Role]bool{
		agents.RoleCoordinator: false,
		agents.RoleExplainer:   false,
		agents.RolePractice:    false,
		agents.RoleVisual:      false,
		agents.RoleMotivator:   true,
		agents.RoleAssessor:    true,
	}
	for role, want := range exempt {
		if got := Exempt(role); got != want {
			t.Errorf("Exempt(%s) = %v, want %v", role, got, want)
		}
	}
}

func TestValidatorCheck(t *testing.T) {
	gen := &routerGen{args: `{"valid": false, "issues": ["3 times 4 is 12"], "required_fixes": ["Correct the product"]}`}
	v := NewValidator(gen, "")

	lesson := &store.Lesson{Title: "Meet Multiplication", Subject: "math", Objectives: []string{"Times tables to 5"}}
	resp := &agents.Response{AgentName: "ada", DisplayText: "3 times 4 is 11."}
	verdict, err := v.Check(context.Background(), lesson, "what is 3 times 4?", resp)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if verdict.Valid {
		t.Error("Valid = true, want false")
	}
	if len(verdict.Issues) != 1 || len(verdict.RequiredFixes) != 1 {
		t.Errorf("verdict = %+v", verdict)
	}

	var prompt strings.Builder
	for p := range gen.req.Prompts() {
		prompt.WriteString(p.Text)
	}
	for _, want := range []string{"Meet Multiplication", "Times tables to 5"} {
		if !strings.Contains(prompt.String(), want) {
			t.Errorf("check prompt missing %q", want)
		}
	}
}

func TestValidatorCheckNoLesson(t *testing.T) {
	gen := &routerGen{args: `{"valid": true}`}
	v := NewValidator(gen, "custom/model")

	verdict, err := v.Check(context.Background(), nil, "hi", &agents.Response{AgentName: "ada", DisplayText: "Hello!"})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !verdict.Valid {
		t.Error("Valid = false, want true")
	}
}
