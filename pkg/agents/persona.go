package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona configures one specialist: which role it plays, which model and
// voice serve it, and optional style lines appended to the role prompt.
type Persona struct {
	Name  string `yaml:"name" json:"name"`
	Role  Role   `yaml:"role" json:"role"`
	Model string `yaml:"model" json:"model"`
	Voice string `yaml:"voice" json:"voice"`

	// Style lines are appended verbatim to the system prompt.
	Style []string `yaml:"style,omitempty" json:"style,omitempty"`

	// Streaming overrides the role default when set.
	Streaming *bool `yaml:"streaming,omitempty" json:"streaming,omitempty"`

	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// UnmarshalYAML decodes and validates a persona.
func (p *Persona) UnmarshalYAML(node *yaml.Node) error {
	type plain Persona
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Persona(raw)
	if !p.Role.Valid() {
		return fmt.Errorf("agents: unknown role %q", p.Role)
	}
	if p.Name == "" {
		p.Name = string(p.Role)
	}
	return nil
}

// streams resolves the effective streaming mode: explicit override, else
// the role default. Visual and assessor replies are structured documents,
// so they default to non-streaming.
func (p *Persona) streams() bool {
	if p.Streaming != nil {
		return *p.Streaming
	}
	switch p.Role {
	case RoleVisual, RoleAssessor:
		return false
	default:
		return true
	}
}

// personaFile is the on-disk shape of a persona bundle.
type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// ParsePersonas decodes a YAML persona bundle.
func ParsePersonas(data []byte) ([]Persona, error) {
	var f personaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("agents: parse personas: %w", err)
	}
	if len(f.Personas) == 0 {
		return nil, fmt.Errorf("agents: parse personas: no personas defined")
	}
	return f.Personas, nil
}

// LoadPersonas reads a YAML persona bundle from disk.
func LoadPersonas(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agents: load personas: %w", err)
	}
	return ParsePersonas(data)
}

// DefaultPersonas returns the built-in specialist set. Deployments override
// any of it with a persona file.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:  "coordinator",
			Role:  RoleCoordinator,
			Model: "openai/gpt-4o",
			Voice: "minimax/Wise_Woman",
		},
		{
			Name:  "explainer",
			Role:  RoleExplainer,
			Model: "openai/gpt-4o",
			Voice: "minimax/Patient_Man",
		},
		{
			Name:  "practice",
			Role:  RolePractice,
			Model: "openai/gpt-4o-mini",
			Voice: "minimax/Friendly_Person",
		},
		{
			Name:  "visual",
			Role:  RoleVisual,
			Model: "gemini/gemini-2.5-flash",
			Voice: "minimax/Lively_Girl",
		},
		{
			Name:  "motivator",
			Role:  RoleMotivator,
			Model: "openai/gpt-4o-mini",
			Voice: "minimax/Lively_Girl",
		},
		{
			Name:  "assessor",
			Role:  RoleAssessor,
			Model: "gemini/gemini-2.5-flash",
			Voice: "minimax/Calm_Woman",
		},
	}
}
