package harness

import (
	"github.com/roach88/poser/internal/engine"
)

// Trace entry kinds.
const (
	KindEvent = "event"
	KindCue   = "cue"
)

// Cue names recorded by the drill backends.
const (
	CueSpeak   = "speak"
	CueTone    = "tone"
	CueVibrate = "vibrate"
)

// TraceEvent is one entry of a drill trace: either an engine event or a cue
// that the dispatcher delivered to a backend.
type TraceEvent struct {
	Kind string `json:"kind"`
	AtMS int64  `json:"at_ms"` // virtual time since the drill began

	// Engine events
	Type   string `json:"type,omitempty"`
	Step   int    `json:"step"`
	Pose   string `json:"pose,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Prev   int    `json:"prev,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Cues
	Cue  string `json:"cue,omitempty"`
	Text string `json:"text,omitempty"`
	Hz   int    `json:"hz,omitempty"`
	MS   int    `json:"ms,omitempty"`
}

// canonical returns the entry as a map that ir.MarshalCanonical accepts.
// Only the fields meaningful for the entry's kind are included.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"kind":  e.Kind,
		"at_ms": e.AtMS,
	}
	if e.Kind == KindCue {
		m["cue"] = e.Cue
		switch e.Cue {
		case CueSpeak:
			m["text"] = e.Text
		case CueTone:
			m["hz"] = int64(e.Hz)
		case CueVibrate:
			m["ms"] = int64(e.MS)
		}
		return m
	}

	m["type"] = e.Type
	m["step"] = int64(e.Step)
	if e.Pose != "" {
		m["pose"] = e.Pose
	}
	switch engine.EventType(e.Type) {
	case engine.EventPhaseChanged:
		m["from"] = e.From
		m["to"] = e.To
	case engine.EventStepAdvanced:
		m["prev"] = int64(e.Prev)
	case engine.EventSessionEnded:
		m["reason"] = e.Reason
	}
	return m
}

// Result is the outcome of a drill.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds engine events and delivered cues in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Final is the engine state after the last step.
	Final engine.Snapshot `json:"-"`

	// History is the recorded sessions, newest first.
	History []RecordSummary `json:"history"`
}

// RecordSummary is the part of a recorded session a drill can assert on.
type RecordSummary struct {
	ID             string `json:"id"`
	Reason         string `json:"reason"`
	TensionSec     int    `json:"tension_sec"`
	TotalSec       int    `json:"total_sec"`
	PosesCompleted int    `json:"poses_completed"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		History: []RecordSummary{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns the trace entries that are engine events of type t.
func (r *Result) Events(t engine.EventType) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Kind == KindEvent && e.Type == string(t) {
			out = append(out, e)
		}
	}
	return out
}

// Cues returns the trace entries that are cues named name.
func (r *Result) Cues(name string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Kind == KindCue && e.Cue == name {
			out = append(out, e)
		}
	}
	return out
}
