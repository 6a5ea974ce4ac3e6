package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#0E7490") // Cyan
	secondaryColor = lipgloss.Color("#10B981") // Emerald
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444")
	fgColor        = lipgloss.Color("#CDD6F4")
	mutedColor     = lipgloss.Color("#6C7086")
	borderColor    = lipgloss.Color("#45475A")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(fgColor).
	Background(primaryColor).
	Padding(0, 2)

var activeTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(secondaryColor).
	Border(lipgloss.NormalBorder(), false, false, true, false).
	BorderForeground(secondaryColor).
	Padding(0, 2)

var tabStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	Padding(0, 2)

var helpStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	MarginTop(1)

var confirmStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(accentColor).
	Foreground(accentColor).
	Padding(0, 2)

var statusStyle = lipgloss.NewStyle().
	Foreground(secondaryColor)

var errorStyle = lipgloss.NewStyle().
	Foreground(errorColor).
	Bold(true)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(borderColor).
	Padding(0, 1)
