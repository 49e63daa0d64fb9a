package ir

import "time"

// PoseRef identifies a pose in the catalog.
type PoseRef string

// RestMarker is the pose reference of the synthetic inter-loop rest step.
const RestMarker PoseRef = "__loop_rest__"

// Pose categories used by the built-in catalog.
const (
	CategorySymmetry    = "symmetry"
	CategoryMuscularity = "muscularity"
	CategoryOptional    = "practice_optional"
	CategoryFavourite   = "favourite"
	CategoryCustom      = "custom"
)

// Pose is a catalog entry.
type Pose struct {
	ID                PoseRef       `json:"id" yaml:"id"`
	Label             string        `json:"label" yaml:"label"`
	SpokenAlias       string        `json:"spoken_alias,omitempty" yaml:"spoken_alias,omitempty"`
	Category          string        `json:"category" yaml:"category"`
	SymmetryTurn      bool          `json:"symmetry_turn,omitempty" yaml:"symmetry_turn,omitempty"`
	Aliases           []string      `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Description       string        `json:"description,omitempty" yaml:"description,omitempty"`
	Cues              []string      `json:"cues,omitempty" yaml:"cues,omitempty"`
	Mistakes          []string      `json:"mistakes,omitempty" yaml:"mistakes,omitempty"`
	DefaultTransition time.Duration `json:"default_transition,omitempty" yaml:"default_transition,omitempty"`
	DefaultHold       time.Duration `json:"default_hold,omitempty" yaml:"default_hold,omitempty"`
	Custom            bool          `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// SpokenLabel returns the text used when announcing the pose:
// the spoken alias, else the label, else the ID.
func (p Pose) SpokenLabel() string {
	switch {
	case p.SpokenAlias != "":
		return p.SpokenAlias
	case p.Label != "":
		return p.Label
	default:
		return string(p.ID)
	}
}

// RoutineItem is one pose of a routine with its own timings.
type RoutineItem struct {
	Pose       PoseRef       `json:"pose" yaml:"pose"`
	Transition time.Duration `json:"transition" yaml:"transition"`
	Hold       time.Duration `json:"hold" yaml:"hold"`
}

// RoutineDef is a named, ordered set of poses repeated RepeatCount times.
type RoutineDef struct {
	ID          string        `json:"id" yaml:"id"`
	Label       string        `json:"label" yaml:"label"`
	Items       []RoutineItem `json:"items" yaml:"items"`
	RepeatCount int           `json:"repeat_count" yaml:"repeat_count"`
	LoopRest    time.Duration `json:"loop_rest" yaml:"loop_rest"`

	// SymmetryTurn marks routines whose non-first items are reached by a
	// quarter turn of the athlete.
	SymmetryTurn bool `json:"symmetry_turn,omitempty" yaml:"symmetry_turn,omitempty"`

	// Shuffle allows the compiler to randomize item order when asked to.
	Shuffle bool `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
}

// RoutineOverride adjusts a routine when it is referenced from a master.
type RoutineOverride struct {
	RepeatCount  *int           `json:"repeat_count,omitempty" yaml:"repeat_count,omitempty"`
	LoopRest     *time.Duration `json:"loop_rest,omitempty" yaml:"loop_rest,omitempty"`
	SymmetryTurn *bool          `json:"symmetry_turn,omitempty" yaml:"symmetry_turn,omitempty"`
}

// MasterStep references one routine of a master.
type MasterStep struct {
	Routine  string           `json:"routine" yaml:"routine"`
	Override *RoutineOverride `json:"override,omitempty" yaml:"override,omitempty"`
}

// MasterDef concatenates several routines into one session.
type MasterDef struct {
	ID       string       `json:"id" yaml:"id"`
	Label    string       `json:"label" yaml:"label"`
	Sequence []MasterStep `json:"sequence" yaml:"sequence"`
}

// Overrides are user-supplied adjustments applied uniformly at compile time.
// A nil field means "unset": the routine's own value is used.
type Overrides struct {
	EveryHold       *time.Duration `json:"every_hold,omitempty" yaml:"every_hold,omitempty"`
	EveryTransition *time.Duration `json:"every_transition,omitempty" yaml:"every_transition,omitempty"`
	LoopRepeatCount *int           `json:"loop_repeat_count,omitempty" yaml:"loop_repeat_count,omitempty"`
	LoopRest        *time.Duration `json:"loop_rest,omitempty" yaml:"loop_rest,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.EveryHold == nil && o.EveryTransition == nil && o.LoopRepeatCount == nil && o.LoopRest == nil
}

// Dur returns a pointer to d, for building Overrides.
func Dur(d time.Duration) *time.Duration { return &d }

// Seconds returns a pointer to n whole seconds.
func Seconds(n int) *time.Duration { return Dur(time.Duration(n) * time.Second) }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
