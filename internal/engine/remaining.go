package engine

import (
	"time"

	"github.com/roach88/poser/internal/ir"
)

// StepDuration is the wall time a step takes when played through:
// the transition alone for a rest step, else transition + countdown + hold.
func StepDuration(s ir.RunStep) time.Duration {
	if s.IsRest() {
		return s.Transition
	}
	return s.Transition + CountdownDuration + s.Hold
}

// TimeRemaining computes the total time left in a session from a snapshot.
//
// It sums what is left of the current phase (the transition remainder, the
// countdown remainder plus the full hold, or the hold remainder) with the
// full duration of every subsequent step. An idle snapshot counts the
// current step in full; a stopped one has nothing left.
func TimeRemaining(run []ir.RunStep, s Snapshot) time.Duration {
	if len(run) == 0 || s.Phase == ir.PhaseStopped || s.StepIndex >= len(run) {
		return 0
	}

	cur := run[s.StepIndex]
	var rem time.Duration
	switch s.Phase {
	case ir.PhaseIdle:
		rem = StepDuration(cur)
	case ir.PhaseTransition:
		rem = clampZero(cur.Transition - s.Elapsed)
	case ir.PhaseCountdown:
		rem = clampZero(CountdownDuration-s.Elapsed) + cur.Hold
	case ir.PhaseHold:
		rem = clampZero(cur.Hold - s.Elapsed)
	}

	for _, next := range run[s.StepIndex+1:] {
		rem += StepDuration(next)
	}
	return rem
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
