// Terminal styles for the chat client.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Accent  lipgloss.Color // Agent label color
	Dim     lipgloss.Color // Dimmed/metadata color
	Error   lipgloss.Color // Error color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#f7768e"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Agent  lipgloss.Style
	Prompt lipgloss.Style
	Meta   lipgloss.Style
	Error  lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Agent:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Prompt: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Meta:   lipgloss.NewStyle().Foreground(t.Dim),
		Error:  lipgloss.NewStyle().Foreground(t.Error),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// Banner renders a boxed one-line header: title left, note right.
func (s Styles) Banner(title, note string) string {
	styledTitle := s.Title.Render(title)
	styledNote := s.Meta.Render(note)

	inner := lipgloss.Width(styledTitle) + 2
	if note != "" {
		inner += lipgloss.Width(styledNote) + 1
	}

	bc := s.Border
	var b strings.Builder
	b.WriteString(bc.Render("╭" + strings.Repeat("─", inner) + "╮"))
	b.WriteString("\n")
	b.WriteString(bc.Render("│") + " " + styledTitle)
	if note != "" {
		b.WriteString(" " + styledNote)
	}
	b.WriteString(" " + bc.Render("│"))
	b.WriteString("\n")
	b.WriteString(bc.Render("╰" + strings.Repeat("─", inner) + "╯"))
	return b.String()
}

// AgentLabel renders a right-aligned speaker label for conversation lines.
func (s Styles) AgentLabel(name string, width int) string {
	if len(name) > width {
		name = name[:width]
	}
	pad := strings.Repeat(" ", max(0, width-len(name)))
	return pad + s.Agent.Render(name) + s.Meta.Render(" │")
}
