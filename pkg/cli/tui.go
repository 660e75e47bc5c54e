package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of the terminal panels.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is bright green on the terminal default.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f87"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
		Value:  lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// Field is one label/value row of a Panel.
type Field struct {
	Label string
	Value string
}

// Panel is a bordered block with a title and aligned fields, used for the
// generation parameter summary.
type Panel struct {
	Styles Styles
	Title  string
	Fields []Field
	// Footer lines are rendered dimmed under the fields.
	Footer []string
}

// Render renders the panel.
func (p Panel) Render() string {
	labelWidth := 0
	for _, f := range p.Fields {
		labelWidth = max(labelWidth, lipgloss.Width(f.Label))
	}

	var lines []string
	if p.Title != "" {
		lines = append(lines, p.Styles.Title.Render(p.Title), "")
	}
	for _, f := range p.Fields {
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(f.Label))
		lines = append(lines, p.Styles.Label.Render(f.Label+pad)+"  "+p.Styles.Value.Render(f.Value))
	}
	if len(p.Footer) > 0 {
		lines = append(lines, "")
		for _, l := range p.Footer {
			lines = append(lines, p.Styles.Dim.Render(l))
		}
	}
	return p.Styles.Border.Render(strings.Join(lines, "\n"))
}
