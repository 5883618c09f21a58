package agents

import (
	"strings"
	"testing"
)

const personaYAML = `
personas:
  - role: coordinator
    model: openai/gpt-4o
    voice: minimax/Wise_Woman
  - name: coach
    role: practice
    model: openai/gpt-4o-mini
    voice: minimax/Friendly_Person
    style:
      - Keep problems short.
      - One question at a time.
    max_tokens: 400
    temperature: 0.7
  - role: visual
    model: gemini/gemini-2.5-flash
    voice: minimax/Lively_Girl
    streaming: true
`

func TestParsePersonas(t *testing.T) {
	personas, err := ParsePersonas([]byte(personaYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(personas) != 3 {
		t.Fatalf("personas = %d, want 3", len(personas))
	}

	if personas[0].Name != "coordinator" {
		t.Errorf("name should default to role, got %q", personas[0].Name)
	}
	if !personas[0].streams() {
		t.Error("coordinator should stream by default")
	}

	coach := personas[1]
	if coach.Name != "coach" || coach.Role != RolePractice {
		t.Errorf("coach = %+v", coach)
	}
	if len(coach.Style) != 2 || coach.MaxTokens != 400 || coach.Temperature != 0.7 {
		t.Errorf("coach tuning = %+v", coach)
	}

	if !personas[2].streams() {
		t.Error("explicit streaming override ignored")
	}
}

func TestParsePersonasBadRole(t *testing.T) {
	_, err := ParsePersonas([]byte("personas:\n  - role: wizard\n    model: openai/gpt-4o\n"))
	if err == nil || !strings.Contains(err.Error(), "wizard") {
		t.Fatalf("err = %v, want unknown role", err)
	}
}

func TestParsePersonasEmpty(t *testing.T) {
	if _, err := ParsePersonas([]byte("personas: []\n")); err == nil {
		t.Fatal("expected error for empty persona list")
	}
}

func TestDefaultPersonas(t *testing.T) {
	personas := DefaultPersonas()
	if len(personas) != len(Roles) {
		t.Fatalf("personas = %d, want %d", len(personas), len(Roles))
	}
	seen := make(map[Role]bool)
	for _, p := range personas {
		if seen[p.Role] {
			t.Errorf("duplicate role %s", p.Role)
		}
		seen[p.Role] = true
		if p.Model == "" || p.Voice == "" {
			t.Errorf("%s: missing model or voice", p.Name)
		}
	}
	for _, r := range Roles {
		if !seen[r] {
			t.Errorf("role %s missing from defaults", r)
		}
	}
}

func TestStreamDefaults(t *testing.T) {
	for _, p := range DefaultPersonas() {
		want := p.Role != RoleVisual && p.Role != RoleAssessor
		if p.streams() != want {
			t.Errorf("%s: streams = %v, want %v", p.Name, p.streams(), want)
		}
	}
}
