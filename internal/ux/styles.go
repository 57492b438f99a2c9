// Package ux renders AnySpecs data for the terminal.
package ux

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("#4F7CFF")
	ColorAccent  = lipgloss.Color("#8BA8FF")
	ColorBorder  = lipgloss.Color("#3A4A6B")
	ColorMuted   = lipgloss.Color("#7A8599")
	ColorSuccess = lipgloss.Color("#2ECC71")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

var Styles = struct {
	Title    lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Active   lipgloss.Style
	Card     lipgloss.Style
	Header   lipgloss.Style
	Selected lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Active:  lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
	Header: lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorBorder),
	Selected: lipgloss.NewStyle().Reverse(true),
}
