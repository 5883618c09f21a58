package tutor

import (
	"slices"
	"strings"
	"testing"

	"github.com/edvora/minerva/pkg/mastery"
	"github.com/edvora/minerva/pkg/store"
)

func TestDirectivesNoEvidence(t *testing.T) {
	b := NewDirectiveBuilder(nil)
	got := b.Build(&TurnContext{Session: &store.Session{}}, "hi")
	if len(got) == 0 {
		t.Fatal("no directives built")
	}
	if !strings.Contains(got[0], "no evidence yet") {
		t.Errorf("first directive = %q, want the mastery line", got[0])
	}
}

func TestDirectivesMasteryFirst(t *testing.T) {
	b := NewDirectiveBuilder(nil)
	tctx := &TurnContext{
		Session: &store.Session{},
		Mastery: &mastery.Report{Score: 42, Tier: mastery.TierLearning, Evidence: 9},
	}
	got := b.Build(tctx, "next")
	if !strings.Contains(got[0], "42 of 100") || !strings.Contains(got[0], "9 observations") {
		t.Errorf("mastery line = %q", got[0])
	}
}

func TestDirectivesTiers(t *testing.T) {
	tests := []struct {
		tier mastery.Tier
		want string
	}{
		{mastery.TierStruggling, "Slow down"},
		{mastery.TierLearning, "steady practice"},
		{mastery.TierMastering, "Raise the difficulty"},
	}
	b := NewDirectiveBuilder(nil)
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			tctx := &TurnContext{
				Session: &store.Session{},
				Mastery: &mastery.Report{Score: 50, Tier: tt.tier, Evidence: 4},
			}
			got := strings.Join(b.Build(tctx, "x"), "\n")
			if !strings.Contains(got, tt.want) {
				t.Errorf("directives for %s missing %q:\n%s", tt.tier, tt.want, got)
			}
		})
	}
}

func TestDirectivesProfileRules(t *testing.T) {
	b := NewDirectiveBuilder(nil)
	tctx := &TurnContext{
		Session: &store.Session{},
		Profile: &store.Profile{
			UserID:         "u1",
			Grade:          "2",
			Interests:      []string{"dinosaurs", "space"},
			PreferredStyle: "visual",
		},
	}
	got := strings.Join(b.Build(tctx, "hello"), "\n")
	for _, want := range []string{
		"very short sentences",
		"student's interests",
		"concrete pictures",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("directives missing %q:\n%s", want, got)
		}
	}
}

func TestDirectivesStrugglingStreak(t *testing.T) {
	b := NewDirectiveBuilder(nil)
	tctx := &TurnContext{
		Session: &store.Session{},
		Mastery: &mastery.Report{Score: 18, Tier: mastery.TierStruggling, Evidence: 6},
	}
	got := strings.Join(b.Build(tctx, "I do not get it"), "\n")
	if !strings.Contains(got, "one tiny win") {
		t.Errorf("struggling streak rule did not fire:\n%s", got)
	}
}

func TestDirectivesCustomRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
rules:
  - name: greeting
    match: .message == "hi"
    directives: [Say hello back.]
`))
	if err != nil {
		t.Fatalf("ParseRules() error: %v", err)
	}
	b := NewDirectiveBuilder(rules)

	got := b.Build(&TurnContext{Session: &store.Session{}}, "hi")
	if !slices.Contains(got, "Say hello back.") {
		t.Errorf("custom rule did not fire: %q", got)
	}
	got = b.Build(&TurnContext{Session: &store.Session{}}, "bye")
	if slices.Contains(got, "Say hello back.") {
		t.Errorf("custom rule fired on the wrong message: %q", got)
	}
}

func TestRuleInputGrade(t *testing.T) {
	in := ruleInput(&TurnContext{Profile: &store.Profile{Grade: " 3 "}}, "x")
	if in["grade"] != 3 {
		t.Errorf("grade = %v (%T), want 3", in["grade"], in["grade"])
	}
	in = ruleInput(&TurnContext{Profile: &store.Profile{Grade: "K"}}, "x")
	if in["grade"] != 0 {
		t.Errorf("non-numeric grade = %v, want 0", in["grade"])
	}
}
