// Package ui holds the interactive review screens and their styling.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary     = lipgloss.Color("#2196F3") // Blue
	Accent      = lipgloss.Color("#8BC34A") // Lime Green
	Muted       = lipgloss.Color("#6b7280")
	Destructive = lipgloss.Color("#e53935") // Red
	Warning     = lipgloss.Color("#FFC107") // Yellow
)

// Styles holds the lipgloss styles shared by the review screens.
type Styles struct {
	Title    lipgloss.Style
	Status   lipgloss.Style
	Selected lipgloss.Style
	Normal   lipgloss.Style
	Hidden   lipgloss.Style
	Edited   lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
	Hint     lipgloss.Style
}

// DefaultStyles returns the standard look.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Status:   lipgloss.NewStyle().Foreground(Muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Normal:   lipgloss.NewStyle(),
		Hidden:   lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Edited:   lipgloss.NewStyle().Foreground(Primary),
		Help:     lipgloss.NewStyle().Faint(true),
		Error:    lipgloss.NewStyle().Foreground(Destructive),
		Hint:     lipgloss.NewStyle().Foreground(Warning),
	}
}
