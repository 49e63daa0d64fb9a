package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/poser/internal/cues"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/session"
)

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	v := m.view
	var sections []string

	title := "No routine selected"
	if v.HasSelected {
		title = v.Selection.Label
	}
	sections = append(sections, Title.Render(title))

	if v.State.StepCount == 0 {
		sections = append(sections, Muted.Render("Nothing to run."))
		sections = append(sections, m.help.View(m.keys))
		return ContentBox.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	sections = append(sections, m.renderPhase(v), m.renderPose(v))
	sections = append(sections, m.renderClock(v))
	sections = append(sections, m.progress.ViewAs(phaseProgress(v)))
	sections = append(sections, Muted.Render(statusLine(v)))
	if next := m.renderUpcoming(v); next != "" {
		sections = append(sections, next)
	}
	if m.err != nil {
		sections = append(sections, Error.Render(m.err.Error()))
	}
	sections = append(sections, m.help.View(m.keys))

	return ContentBox.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderPhase(v session.View) string {
	color := phaseColor(v.State.Phase, v.State.Paused(), v.State.Step.IsRest())
	return PhaseBadge.Background(color).Render(v.PhaseLabel())
}

func (m Model) renderPose(v session.View) string {
	lines := []string{PoseLabel.Render(v.Pose.Label)}
	if v.State.Step.NeedsQuarterTurn && v.State.Phase == ir.PhaseTransition {
		lines = append(lines, TurnHint.Render(strings.TrimSpace(cues.TurnInstruction)))
	}
	if v.State.Phase == ir.PhaseHold && len(v.Pose.Cues) > 0 {
		lines = append(lines, Muted.Render("· "+strings.Join(v.Pose.Cues, "  · ")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderClock(v session.View) string {
	clock := FormatClock(v.State.PhaseRemaining())
	if v.State.Phase == ir.PhaseCountdown {
		clock = fmt.Sprintf("%d", ceilSeconds(v.State.PhaseRemaining()))
	}
	if m.bigDigits {
		return Clock.Render(BigDigits(clock))
	}
	return Clock.Render(clock)
}

func (m Model) renderUpcoming(v session.View) string {
	if len(v.Upcoming) == 0 {
		return ""
	}
	labels := make([]string, len(v.Upcoming))
	for i, step := range v.Upcoming {
		labels[i] = m.ctrl.PoseFor(step.Pose).Label
	}
	return Muted.Render("Up next: " + strings.Join(labels, ", "))
}

// statusLine summarizes position and totals.
func statusLine(v session.View) string {
	parts := []string{
		fmt.Sprintf("Step %d/%d", v.State.StepIndex+1, v.State.StepCount),
		"Left " + FormatClock(v.Remaining),
		"Tension " + FormatClock(v.State.CumulativeHold),
	}
	if v.HoldTarget.Enabled() {
		parts = append(parts, "Target "+FormatClock(v.TargetLeft))
	}
	return strings.Join(parts, " · ")
}

// phaseProgress is the elapsed fraction of the current phase.
func phaseProgress(v session.View) float64 {
	total := v.State.PhaseDuration()
	if total <= 0 {
		if v.State.Phase == ir.PhaseStopped {
			return 1
		}
		return 0
	}
	done := float64(total-v.State.PhaseRemaining()) / float64(total)
	return min(max(done, 0), 1)
}

// FormatClock renders d as m:ss, rounding partial seconds up so that a
// running clock never shows 0:00 before the phase ends.
func FormatClock(d time.Duration) string {
	s := ceilSeconds(d)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
