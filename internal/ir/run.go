package ir

import (
	"fmt"
	"time"
)

// RunStep is one entry of a compiled run list.
type RunStep struct {
	Pose             PoseRef       `json:"pose"`
	Transition       time.Duration `json:"transition"`
	Hold             time.Duration `json:"hold"`
	NeedsQuarterTurn bool          `json:"needs_quarter_turn,omitempty"`
}

// IsRest reports whether the step is the synthetic inter-loop rest.
func (s RunStep) IsRest() bool {
	return s.Pose == RestMarker
}

// Phase is the position of the engine within a step.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTransition
	PhaseCountdown
	PhaseHold
	PhaseStopped
)

var phaseNames = [...]string{"idle", "transition", "countdown", "hold", "stopped"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseIdle, fmt.Errorf("unknown phase %q", s)
}

// Active reports whether a step is in progress (running or paused).
func (p Phase) Active() bool {
	return p == PhaseTransition || p == PhaseCountdown || p == PhaseHold
}

// EndReason says why a session ended.
type EndReason string

const (
	ReasonComplete      EndReason = "complete"
	ReasonTargetReached EndReason = "target_reached"
	ReasonStopped       EndReason = "stopped"
)

// Message is the user-facing text for the reason.
func (r EndReason) Message() string {
	switch r {
	case ReasonComplete:
		return "Session complete"
	case ReasonTargetReached:
		return "Round target reached"
	case ReasonStopped:
		return "Session stopped"
	default:
		return string(r)
	}
}

// Spoken is the short phrase announced when a session ends this way.
func (r EndReason) Spoken() string {
	switch r {
	case ReasonComplete:
		return "Session complete"
	case ReasonTargetReached:
		return "Target reached"
	case ReasonStopped:
		return "Stopped"
	default:
		return string(r)
	}
}

// TotalDuration sums every transition and hold of a run list.
func TotalDuration(run []RunStep) time.Duration {
	var total time.Duration
	for _, s := range run {
		total += s.Transition + s.Hold
	}
	return total
}

// PoseCount counts the non-rest steps of a run list.
func PoseCount(run []RunStep) int {
	n := 0
	for _, s := range run {
		if !s.IsRest() {
			n++
		}
	}
	return n
}
