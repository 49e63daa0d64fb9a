package engine

import "github.com/roach88/poser/internal/ir"

// EventType identifies the kind of engine event.
type EventType string

const (
	EventStepStarted    EventType = "step_started"
	EventPhaseChanged   EventType = "phase_changed"
	EventHalfwayReached EventType = "halfway_reached"
	EventStepAdvanced   EventType = "step_advanced"
	EventSessionEnded   EventType = "session_ended"
	EventPaused         EventType = "paused"
	EventResumed        EventType = "resumed"
)

// Event is emitted by the engine on every observable state change.
//
// Fields beyond Type, Seq, SessionID, StepIndex, Step and State are set only
// for the event kinds that use them.
type Event struct {
	Type      EventType
	Seq       int64
	SessionID string
	StepIndex int
	Step      ir.RunStep

	// PhaseChanged
	From ir.Phase
	To   ir.Phase

	// StepAdvanced: the index being left.
	PrevIndex int

	// SessionEnded
	Reason ir.EndReason

	// State is the engine state right after the change.
	State Snapshot
}
