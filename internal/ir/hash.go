package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
const (
	DomainRunList = "poser/runlist/v1"
	DomainRoutine = "poser/routine/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RunListHash identifies a compiled run list. Two run lists with the same
// steps in the same order hash equal.
func RunListHash(run []RunStep) (string, error) {
	steps := make([]any, len(run))
	for i, s := range run {
		steps[i] = map[string]any{
			"pose":          string(s.Pose),
			"transition_ms": s.Transition.Milliseconds(),
			"hold_ms":       s.Hold.Milliseconds(),
			"quarter_turn":  s.NeedsQuarterTurn,
		}
	}
	canonical, err := MarshalCanonical(steps)
	if err != nil {
		return "", fmt.Errorf("RunListHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRunList, canonical), nil
}

// RoutineHash identifies a routine definition by content, ignoring its ID.
func RoutineHash(r RoutineDef) (string, error) {
	canonical, err := MarshalCanonical(RoutineObject(r))
	if err != nil {
		return "", fmt.Errorf("RoutineHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRoutine, canonical), nil
}

// RoutineObject renders a routine as a canonical-JSON-ready object with
// millisecond integer durations.
func RoutineObject(r RoutineDef) map[string]any {
	items := make([]any, len(r.Items))
	for i, it := range r.Items {
		items[i] = map[string]any{
			"pose":          string(it.Pose),
			"transition_ms": it.Transition.Milliseconds(),
			"hold_ms":       it.Hold.Milliseconds(),
		}
	}
	return map[string]any{
		"label":         r.Label,
		"items":         items,
		"repeat_count":  r.RepeatCount,
		"loop_rest_ms":  r.LoopRest.Milliseconds(),
		"symmetry_turn": r.SymmetryTurn,
		"shuffle":       r.Shuffle,
	}
}

// MustRunListHash is like RunListHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRunListHash(run []RunStep) string {
	h, err := RunListHash(run)
	if err != nil {
		panic(err)
	}
	return h
}
