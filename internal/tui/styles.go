package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/poser/internal/ir"
)

var (
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	RestColor      = lipgloss.Color("#60A5FA") // Blue

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Muted = lipgloss.NewStyle().Foreground(MutedColor)
	Error = lipgloss.NewStyle().Foreground(ErrorColor)

	PoseLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	TurnHint = lipgloss.NewStyle().
			Foreground(WarningColor).
			Italic(true)

	Clock = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextColor)

	PhaseBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Padding(0, 1)

	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)
)

// phaseColor is the badge background for a phase.
func phaseColor(p ir.Phase, paused, rest bool) lipgloss.Color {
	switch {
	case paused:
		return MutedColor
	case rest:
		return RestColor
	}
	switch p {
	case ir.PhaseTransition:
		return WarningColor
	case ir.PhaseCountdown:
		return ErrorColor
	case ir.PhaseHold:
		return SecondaryColor
	case ir.PhaseStopped:
		return PrimaryColor
	default:
		return BorderColor
	}
}
