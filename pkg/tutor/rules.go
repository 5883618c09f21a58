package tutor

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// JQExpr is a jq expression pre-parsed at unmarshal time so rule files fail
// on load, not per turn.
type JQExpr struct {
	Expr  string
	Query *gojq.Query
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *JQExpr) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&e.Expr); err != nil {
		return err
	}
	if e.Expr == "" {
		return nil
	}
	query, err := gojq.Parse(e.Expr)
	if err != nil {
		return fmt.Errorf("tutor: invalid jq expression %q: %w", e.Expr, err)
	}
	e.Query = query
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e JQExpr) MarshalYAML() (any, error) {
	return e.Expr, nil
}

// Match runs the expression over input and reports whether the first result
// is truthy. Evaluation errors count as no match.
func (e *JQExpr) Match(input any) bool {
	if e == nil || e.Query == nil {
		return false
	}
	iter := e.Query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return false
	}
	if err, ok := v.(error); ok {
		slog.Warn("tutor: rule expression failed", "expr", e.Expr, "err", err)
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		return true
	}
}

// Rule contributes directive lines when its match expression fires against
// the turn context.
type Rule struct {
	Name       string   `yaml:"name"`
	Match      *JQExpr  `yaml:"match"`
	Directives []string `yaml:"directives"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rule bundle.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tutor: parse rules: %w", err)
	}
	for i, r := range f.Rules {
		if r.Match == nil || r.Match.Query == nil {
			return nil, fmt.Errorf("tutor: rule %d (%s): missing match expression", i, r.Name)
		}
		if len(r.Directives) == 0 {
			return nil, fmt.Errorf("tutor: rule %d (%s): no directives", i, r.Name)
		}
	}
	return f.Rules, nil
}

// LoadRules reads a YAML rule bundle from disk.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tutor: load rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules are the built-in adaptations. Deployments replace them with
// a rule file.
func DefaultRules() []Rule {
	return mustRules(`
rules:
  - name: early-grades
    match: .grade > 0 and .grade <= 2
    directives:
      - Use very short sentences and one idea at a time.
  - name: interests-hook
    match: .interests | length > 0
    directives:
      - Work the student's interests into examples when it fits naturally.
  - name: struggling-streak
    match: .tier == "struggling" and .evidence >= 5
    directives:
      - Shrink the next step; land one tiny win before anything new.
  - name: visual-learner
    match: .style == "visual"
    directives:
      - Prefer concrete pictures and layouts over abstract wording.
`)
}

func mustRules(src string) []Rule {
	rules, err := ParseRules([]byte(src))
	if err != nil {
		panic(err)
	}
	return rules
}
