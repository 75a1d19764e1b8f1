// Package render draws problems and plan executions for the terminal.
package render

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#8BC34A")
	info        = lipgloss.Color("#2196F3")
	warning     = lipgloss.Color("#FFC107")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#6b7280")
)

// Styles holds the lipgloss styles used by the views and the stepper.
type Styles struct {
	Title   lipgloss.Style
	Block   lipgloss.Style
	Held    lipgloss.Style
	Table   lipgloss.Style
	Airport lipgloss.Style
	Muted   lipgloss.Style
	Action  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Panel   lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(info),
		Block:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		Held:    lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(warning).Padding(0, 1),
		Table:   lipgloss.NewStyle().Foreground(muted),
		Airport: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Action:  lipgloss.NewStyle().Foreground(accent),
		Error:   lipgloss.NewStyle().Foreground(destructive).Bold(true),
		Success: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Panel:   lipgloss.NewStyle().Padding(0, 2, 0, 0),
	}
}

var styles = DefaultStyles()
