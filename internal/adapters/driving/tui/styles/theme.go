// Package styles provides the colour palette and lipgloss styles shared by
// the progress view and the styled CLI output.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	// Accent marks titles and the progress bar.
	Accent lipgloss.Color

	// Domain marks compressed domain labels.
	Domain lipgloss.Color

	// Text is the default text colour.
	Text lipgloss.Color

	// Dim is for paths, details and help.
	Dim lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#7C3AED"), // Purple
		Domain:  lipgloss.Color("#06B6D4"), // Cyan
		Text:    lipgloss.Color("#CDD6F4"),
		Dim:     lipgloss.Color("#6C7086"),
		Success: lipgloss.Color("#A6E3A1"),
		Warning: lipgloss.Color("#F9E2AF"),
		Error:   lipgloss.Color("#F38BA8"),
	}
}

// Styles holds the pre-built lipgloss styles.
type Styles struct {
	theme *Theme

	Title   lipgloss.Style
	Domain  lipgloss.Style
	Text    lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Fact prefixes a bullet to each fact line.
	Fact lipgloss.Style

	// Summary boxes a domain summary.
	Summary lipgloss.Style
}

// NewStyles builds styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Domain: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Domain),

		Text:    lipgloss.NewStyle().Foreground(theme.Text),
		Dim:     lipgloss.NewStyle().Foreground(theme.Dim),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),

		Fact: lipgloss.NewStyle().
			Foreground(theme.Text).
			PaddingLeft(2),

		Summary: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Domain).
			PaddingLeft(1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// PlainStyles returns styles that render text unchanged, for pipes and tests.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		theme:   DefaultTheme(),
		Title:   plain,
		Domain:  plain,
		Text:    plain,
		Dim:     plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Fact:    plain.PaddingLeft(2),
		Summary: plain.PaddingLeft(2),
	}
}

// Theme returns the palette behind these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Score renders a similarity score, coloured by strength.
func (s *Styles) Score(score float64) string {
	text := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 0.6:
		return s.Success.Render(text)
	case score >= 0.35:
		return s.Warning.Render(text)
	default:
		return s.Dim.Render(text)
	}
}
