package tutor

import (
	"strings"
	"testing"
)

func TestParseRules(t *testing.T) {
	src := `
rules:
  - name: short-attention
    match: .message | length > 200
    directives:
      - Keep it short.
      - One question at a time.
  - name: night-owl
    match: .tier == "learning"
    directives:
      - Steady pace.
`
	rules, err := ParseRules([]byte(src))
	if err != nil {
		t.Fatalf("ParseRules() error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Name != "short-attention" || len(rules[0].Directives) != 2 {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if rules[0].Match.Expr != ".message | length > 200" {
		t.Errorf("Expr = %q", rules[0].Match.Expr)
	}
	if rules[0].Match.Query == nil {
		t.Error("match expression not parsed")
	}
}

func TestParseRulesBadExpr(t *testing.T) {
	src := `
rules:
  - name: broken
    match: ".grade >"
    directives: [x]
`
	_, err := ParseRules([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "invalid jq expression") {
		t.Fatalf("ParseRules() error = %v, want invalid jq expression", err)
	}
}

func TestParseRulesMissingPieces(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no match", "rules:\n  - name: x\n    directives: [y]\n", "missing match"},
		{"no directives", "rules:\n  - name: x\n    match: .grade == 1\n", "no directives"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ParseRules() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestJQExprMatch(t *testing.T) {
	input := map[string]any{
		"tier":      "struggling",
		"evidence":  7,
		"grade":     2,
		"interests": []any{"dinosaurs"},
	}
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"tier equal", `.tier == "struggling"`, true},
		{"tier other", `.tier == "mastering"`, false},
		{"evidence bound", `.evidence >= 5`, true},
		{"grade range", `.grade > 0 and .grade <= 2`, true},
		{"interests length", `.interests | length > 0`, true},
		{"null result", `.missing`, false},
		{"non-bool truthy", `.interests`, true},
		{"evaluation error", `.interests + 1`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "rules:\n  - name: t\n    match: " + quoteYAML(tt.expr) + "\n    directives: [d]\n"
			rules, err := ParseRules([]byte(src))
			if err != nil {
				t.Fatalf("ParseRules() error: %v", err)
			}
			if got := rules[0].Match.Match(input); got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func quoteYAML(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

func TestJQExprNil(t *testing.T) {
	var e *JQExpr
	if e.Match(map[string]any{}) {
		t.Error("nil expression matched")
	}
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	if len(rules) == 0 {
		t.Fatal("no default rules")
	}
	for _, r := range rules {
		if r.Match == nil || r.Match.Query == nil {
			t.Errorf("rule %s has no parsed match", r.Name)
		}
		if len(r.Directives) == 0 {
			t.Errorf("rule %s has no directives", r.Name)
		}
	}
}
