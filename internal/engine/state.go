package engine

import (
	"time"

	"github.com/roach88/poser/internal/ir"
)

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	SessionID            string        `json:"session_id,omitempty"`
	Phase                ir.Phase      `json:"phase"`
	Running              bool          `json:"running"`
	StepIndex            int           `json:"step_index"`
	StepCount            int           `json:"step_count"`
	Step                 ir.RunStep    `json:"step"`
	Elapsed              time.Duration `json:"elapsed"`
	CumulativeHold       time.Duration `json:"cumulative_hold"`
	CumulativeTransition time.Duration `json:"cumulative_transition"`
	HalfwayFired         bool          `json:"halfway_fired"`
	EndReason            ir.EndReason  `json:"end_reason,omitempty"`
}

// Paused reports whether a step is in progress with the clock suspended.
func (s Snapshot) Paused() bool {
	return s.Phase.Active() && !s.Running
}

// PhaseDuration is the nominal length of the current phase.
func (s Snapshot) PhaseDuration() time.Duration {
	switch s.Phase {
	case ir.PhaseTransition:
		return s.Step.Transition
	case ir.PhaseCountdown:
		return CountdownDuration
	case ir.PhaseHold:
		return s.Step.Hold
	default:
		return 0
	}
}

// PhaseRemaining is the time left in the current phase.
func (s Snapshot) PhaseRemaining() time.Duration {
	left := s.PhaseDuration() - s.Elapsed
	if left < 0 {
		return 0
	}
	return left
}

// state is the mutable engine state guarded by Engine.mu.
type state struct {
	sessionID     string
	phase         ir.Phase
	running       bool
	index         int
	elapsed       time.Duration
	cumHold       time.Duration
	cumTransition time.Duration
	halfwayFired  bool
	endReason     ir.EndReason
}
