package engine

import (
	"time"

	"github.com/roach88/poser/internal/ir"
)

// HoldTarget is the per-session time-under-tension goal.
//
// The target is checked on every Hold tick against the cumulative hold time
// floored to whole seconds, so a session can end in the middle of a hold.
// A zero (or negative) target disables the check.
type HoldTarget struct {
	seconds int
}

// NewHoldTarget creates a target of the given whole seconds.
func NewHoldTarget(seconds int) HoldTarget {
	if seconds < 0 {
		seconds = 0
	}
	return HoldTarget{seconds: seconds}
}

// Enabled reports whether a target is set.
func (t HoldTarget) Enabled() bool {
	return t.seconds > 0
}

// Seconds returns the target in whole seconds (0 when disabled).
func (t HoldTarget) Seconds() int {
	return t.seconds
}

// Reached reports whether the floored cumulative hold meets the target.
func (t HoldTarget) Reached(cumulativeHold time.Duration) bool {
	return t.Enabled() && ir.FloorSeconds(cumulativeHold) >= t.seconds
}

// Remaining returns how much hold time is still needed, or 0.
func (t HoldTarget) Remaining(cumulativeHold time.Duration) time.Duration {
	if !t.Enabled() {
		return 0
	}
	left := time.Duration(t.seconds)*time.Second - cumulativeHold
	if left < 0 {
		return 0
	}
	return left
}
