package compiler

import (
	"fmt"
	"math/rand"

	"github.com/roach88/poser/internal/ir"
)

// Option configures compilation.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithShuffle randomizes the item order of routines marked Shuffle, once per
// routine, before looping. A nil rng leaves order untouched.
func WithShuffle(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// RoutineLookup resolves a routine reference from a master.
type RoutineLookup func(id string) (ir.RoutineDef, bool)

// Compile expands a routine into a flat run list.
//
// The effective repeat count is the override if set, else the routine's,
// with a floor of 1. Hold and transition overrides replace every item's
// value uniformly. For symmetry-turn routines every item but the first of
// each repeat needs a quarter turn. After each repeat except the last, a
// rest step is appended when the effective loop rest is positive.
func Compile(routine ir.RoutineDef, ov ir.Overrides, opts ...Option) ([]ir.RunStep, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(routine.Items) == 0 {
		return nil, &CompileError{
			Field:   "items",
			Message: fmt.Sprintf("routine %q has no items", routine.ID),
		}
	}

	repeat := routine.RepeatCount
	if ov.LoopRepeatCount != nil {
		repeat = *ov.LoopRepeatCount
	}
	if repeat < 1 {
		repeat = 1
	}

	rest := routine.LoopRest
	if ov.LoopRest != nil {
		rest = *ov.LoopRest
	}
	if rest < 0 {
		return nil, &CompileError{
			Field:   "loop_rest",
			Message: fmt.Sprintf("routine %q: negative loop rest %s", routine.ID, rest),
		}
	}

	items := routine.Items
	if routine.Shuffle && o.rng != nil {
		items = make([]ir.RoutineItem, len(routine.Items))
		copy(items, routine.Items)
		o.rng.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})
	}

	base := make([]ir.RunStep, len(items))
	for j, it := range items {
		step := ir.RunStep{
			Pose:             it.Pose,
			Transition:       it.Transition,
			Hold:             it.Hold,
			NeedsQuarterTurn: routine.SymmetryTurn && j != 0,
		}
		if ov.EveryTransition != nil {
			step.Transition = *ov.EveryTransition
		}
		if ov.EveryHold != nil {
			step.Hold = *ov.EveryHold
		}
		if step.Transition < 0 || step.Hold < 0 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("items[%d]", j),
				Message: fmt.Sprintf("routine %q: negative duration for pose %q", routine.ID, it.Pose),
			}
		}
		if step.Pose == "" || step.Pose == ir.RestMarker {
			return nil, &CompileError{
				Field:   fmt.Sprintf("items[%d].pose", j),
				Message: fmt.Sprintf("routine %q: invalid pose reference %q", routine.ID, it.Pose),
			}
		}
		base[j] = step
	}

	run := make([]ir.RunStep, 0, repeat*len(base)+repeat-1)
	for r := 0; r < repeat; r++ {
		run = append(run, base...)
		if r < repeat-1 && rest > 0 {
			run = append(run, ir.RunStep{Pose: ir.RestMarker, Transition: rest})
		}
	}
	return run, nil
}

// MergeOverride applies a master's per-routine override to a routine.
func MergeOverride(routine ir.RoutineDef, ov *ir.RoutineOverride) ir.RoutineDef {
	if ov == nil {
		return routine
	}
	if ov.RepeatCount != nil {
		routine.RepeatCount = *ov.RepeatCount
	}
	if ov.LoopRest != nil {
		routine.LoopRest = *ov.LoopRest
	}
	if ov.SymmetryTurn != nil {
		routine.SymmetryTurn = *ov.SymmetryTurn
	}
	return routine
}

// CompileMaster compiles every routine of a master in order and concatenates
// the results. User overrides apply uniformly to every pass.
func CompileMaster(master ir.MasterDef, lookup RoutineLookup, ov ir.Overrides, opts ...Option) ([]ir.RunStep, error) {
	if len(master.Sequence) == 0 {
		return nil, &CompileError{
			Field:   "sequence",
			Message: fmt.Sprintf("master %q has an empty sequence", master.ID),
		}
	}

	var run []ir.RunStep
	for i, step := range master.Sequence {
		routine, ok := lookup(step.Routine)
		if !ok {
			return nil, &CompileError{
				Field:   fmt.Sprintf("sequence[%d].routine", i),
				Message: fmt.Sprintf("master %q references unknown routine %q", master.ID, step.Routine),
			}
		}
		part, err := Compile(MergeOverride(routine, step.Override), ov, opts...)
		if err != nil {
			return nil, fmt.Errorf("master %q: %w", master.ID, err)
		}
		run = append(run, part...)
	}
	return run, nil
}
