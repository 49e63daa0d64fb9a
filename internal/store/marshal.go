package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// timeLayout is used for every stored timestamp. Fixed-width fractional
// seconds keep text ordering equal to time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalRoutine converts a routine to canonical JSON TEXT for storage.
// The routine ID is not stored; the playlist name is the key.
func marshalRoutine(r ir.RoutineDef) (string, error) {
	data, err := ir.MarshalCanonical(ir.RoutineObject(r))
	if err != nil {
		return "", fmt.Errorf("marshal routine: %w", err)
	}
	return string(data), nil
}

// storedRoutine mirrors ir.RoutineObject.
type storedRoutine struct {
	Label        string       `json:"label"`
	Items        []storedItem `json:"items"`
	RepeatCount  int          `json:"repeat_count"`
	LoopRestMS   int64        `json:"loop_rest_ms"`
	SymmetryTurn bool         `json:"symmetry_turn"`
	Shuffle      bool         `json:"shuffle"`
}

type storedItem struct {
	Pose         string `json:"pose"`
	TransitionMS int64  `json:"transition_ms"`
	HoldMS       int64  `json:"hold_ms"`
}

// unmarshalRoutine parses canonical routine JSON TEXT.
func unmarshalRoutine(id, data string) (ir.RoutineDef, error) {
	var sr storedRoutine
	if err := json.Unmarshal([]byte(data), &sr); err != nil {
		return ir.RoutineDef{}, fmt.Errorf("unmarshal routine: %w", err)
	}

	r := ir.RoutineDef{
		ID:           id,
		Label:        sr.Label,
		Items:        make([]ir.RoutineItem, len(sr.Items)),
		RepeatCount:  sr.RepeatCount,
		LoopRest:     time.Duration(sr.LoopRestMS) * time.Millisecond,
		SymmetryTurn: sr.SymmetryTurn,
		Shuffle:      sr.Shuffle,
	}
	for i, it := range sr.Items {
		r.Items[i] = ir.RoutineItem{
			Pose:       ir.PoseRef(it.Pose),
			Transition: time.Duration(it.TransitionMS) * time.Millisecond,
			Hold:       time.Duration(it.HoldMS) * time.Millisecond,
		}
	}
	return r, nil
}
