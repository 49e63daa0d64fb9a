package compiler

import (
	"fmt"
	"math"
	"time"

	"cuelang.org/go/cue"

	"github.com/roach88/poser/internal/ir"
)

// ParsePose parses a CUE value into a Pose.
//
// The CUE value should be the pose struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`pose: vacuum: { label: "Vacuum", category: "favourite" }`)
//	pose, err := ParsePose(v.LookupPath(cue.ParsePath("pose.vacuum")))
func ParsePose(v cue.Value) (*ir.Pose, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pose := &ir.Pose{ID: ir.PoseRef(lastLabel(v))}

	label, err := requiredString(v, "label")
	if err != nil {
		return nil, err
	}
	pose.Label = label

	if pose.Category, err = optionalString(v, "category"); err != nil {
		return nil, err
	}
	if pose.SpokenAlias, err = optionalString(v, "spoken_alias"); err != nil {
		return nil, err
	}
	if pose.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if pose.SymmetryTurn, err = optionalBool(v, "symmetry_turn"); err != nil {
		return nil, err
	}
	if pose.Aliases, err = optionalStrings(v, "aliases"); err != nil {
		return nil, err
	}
	if pose.Cues, err = optionalStrings(v, "cues"); err != nil {
		return nil, err
	}
	if pose.Mistakes, err = optionalStrings(v, "mistakes"); err != nil {
		return nil, err
	}
	if pose.DefaultTransition, err = optionalSeconds(v, "transition"); err != nil {
		return nil, err
	}
	if pose.DefaultHold, err = optionalSeconds(v, "hold"); err != nil {
		return nil, err
	}

	return pose, nil
}

// ParseRoutine parses a CUE value into a RoutineDef:
//
//	routine: classic_symmetry_loop: {
//		label: "Classic Symmetry Loop"
//		repeat: 2
//		symmetry_turn: true
//		items: [{pose: "front_relaxed", transition: 5, hold: 20}]
//	}
func ParseRoutine(v cue.Value) (*ir.RoutineDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	r := &ir.RoutineDef{ID: lastLabel(v), RepeatCount: 1}

	label, err := optionalString(v, "label")
	if err != nil {
		return nil, err
	}
	r.Label = label
	if r.Label == "" {
		r.Label = r.ID
	}

	if repeat := v.LookupPath(cue.ParsePath("repeat")); repeat.Exists() {
		n, err := repeat.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r.RepeatCount = int(n)
	}
	if r.LoopRest, err = optionalSeconds(v, "loop_rest"); err != nil {
		return nil, err
	}
	if r.SymmetryTurn, err = optionalBool(v, "symmetry_turn"); err != nil {
		return nil, err
	}
	if r.Shuffle, err = optionalBool(v, "shuffle"); err != nil {
		return nil, err
	}

	itemsVal := v.LookupPath(cue.ParsePath("items"))
	if !itemsVal.Exists() {
		return nil, &CompileError{
			Field:   "items",
			Message: "items are required",
			Pos:     v.Pos(),
		}
	}
	iter, err := itemsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		item, err := parseItem(iter.Value())
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, item)
	}

	return r, nil
}

func parseItem(v cue.Value) (ir.RoutineItem, error) {
	var item ir.RoutineItem

	pose, err := requiredString(v, "pose")
	if err != nil {
		return item, err
	}
	item.Pose = ir.PoseRef(pose)

	if item.Transition, err = optionalSeconds(v, "transition"); err != nil {
		return item, err
	}
	if item.Hold, err = optionalSeconds(v, "hold"); err != nil {
		return item, err
	}
	return item, nil
}

// ParseMaster parses a CUE value into a MasterDef. Each sequence entry names a
// routine and may override its repeat, loop_rest and symmetry_turn.
func ParseMaster(v cue.Value) (*ir.MasterDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.MasterDef{ID: lastLabel(v)}
	label, err := optionalString(v, "label")
	if err != nil {
		return nil, err
	}
	m.Label = label
	if m.Label == "" {
		m.Label = m.ID
	}

	seqVal := v.LookupPath(cue.ParsePath("sequence"))
	if !seqVal.Exists() {
		return nil, &CompileError{
			Field:   "sequence",
			Message: "sequence is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := seqVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		step, err := parseMasterStep(iter.Value())
		if err != nil {
			return nil, err
		}
		m.Sequence = append(m.Sequence, step)
	}
	return m, nil
}

func parseMasterStep(v cue.Value) (ir.MasterStep, error) {
	var step ir.MasterStep

	ref, err := requiredString(v, "routine")
	if err != nil {
		return step, err
	}
	step.Routine = ref

	var ov ir.RoutineOverride
	set := false
	if repeat := v.LookupPath(cue.ParsePath("repeat")); repeat.Exists() {
		n, err := repeat.Int64()
		if err != nil {
			return step, formatCUEError(err)
		}
		ov.RepeatCount = ir.Int(int(n))
		set = true
	}
	if rest := v.LookupPath(cue.ParsePath("loop_rest")); rest.Exists() {
		d, err := seconds(rest)
		if err != nil {
			return step, err
		}
		ov.LoopRest = ir.Dur(d)
		set = true
	}
	if turn := v.LookupPath(cue.ParsePath("symmetry_turn")); turn.Exists() {
		b, err := turn.Bool()
		if err != nil {
			return step, formatCUEError(err)
		}
		ov.SymmetryTurn = ir.Bool(b)
		set = true
	}
	if set {
		step.Override = &ov
	}
	return step, nil
}

// lastLabel returns the final selector of the value's path, used as the ID.
func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalSeconds(v cue.Value, field string) (time.Duration, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	return seconds(fv)
}

// seconds converts a CUE number of seconds to a Duration with millisecond
// precision.
func seconds(v cue.Value) (time.Duration, error) {
	switch v.IncompleteKind() {
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
	default:
		return 0, &CompileError{
			Field:   "seconds",
			Message: fmt.Sprintf("expected a number of seconds, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	f, err := v.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return time.Duration(math.Round(f*1000)) * time.Millisecond, nil
}
