package tutor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edvora/minerva/pkg/mastery"
)

// DirectiveBuilder renders per-turn guidance for the responding specialist:
// the mastery status line always leads, then tier advice, then whatever
// adaptive rules match the turn.
type DirectiveBuilder struct {
	rules []Rule
}

// NewDirectiveBuilder creates a builder. nil rules means DefaultRules.
func NewDirectiveBuilder(rules []Rule) *DirectiveBuilder {
	if rules == nil {
		rules = DefaultRules()
	}
	return &DirectiveBuilder{rules: rules}
}

// Build renders the directive list for one turn.
func (d *DirectiveBuilder) Build(tctx *TurnContext, msg string) []string {
	out := []string{masteryLine(tctx.Mastery)}
	out = append(out, tierLines(tctx.Mastery)...)
	in := ruleInput(tctx, msg)
	for _, r := range d.rules {
		if r.Match.Match(in) {
			out = append(out, r.Directives...)
		}
	}
	return out
}

func masteryLine(m *mastery.Report) string {
	if m == nil || m.Evidence == 0 {
		return "Mastery: no evidence yet; start gently and gauge the level."
	}
	return fmt.Sprintf("Mastery: %.0f of 100 (%s, %d observations).",
		float64(m.Score), m.Tier, m.Evidence)
}

func tierLines(m *mastery.Report) []string {
	if m == nil || m.Evidence == 0 {
		return nil
	}
	switch m.Tier {
	case mastery.TierStruggling:
		return []string{
			"Slow down: smaller steps and more worked examples.",
			"Acknowledge every attempt before correcting it.",
		}
	case mastery.TierMastering:
		return []string{
			"Raise the difficulty; offer a stretch question.",
		}
	default:
		return []string{
			"Keep steady practice with gradually harder problems.",
		}
	}
}

// ruleInput flattens the turn context into the JSON-shaped value rule
// expressions run against.
func ruleInput(tctx *TurnContext, msg string) map[string]any {
	in := map[string]any{
		"message":   msg,
		"tier":      "",
		"score":     0.0,
		"evidence":  0,
		"grade":     0,
		"style":     "",
		"interests": []any{},
	}
	if m := tctx.Mastery; m != nil {
		in["tier"] = string(m.Tier)
		in["score"] = float64(m.Score)
		in["evidence"] = m.Evidence
	}
	if p := tctx.Profile; p != nil {
		// Grade is stored as text ("2", "K"); rules compare numerically.
		if n, err := strconv.Atoi(strings.TrimSpace(p.Grade)); err == nil {
			in["grade"] = n
		}
		in["style"] = p.PreferredStyle
		interests := make([]any, len(p.Interests))
		for i, v := range p.Interests {
			interests[i] = v
		}
		in["interests"] = interests
	}
	return in
}
