package library

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/roach88/poser/internal/compiler"
	"github.com/roach88/poser/internal/ir"
)

// PlaylistPrefix is prepended to a playlist name to form its routine key.
const PlaylistPrefix = "custom_"

// ErrUnknownKey is returned when a key names neither a routine nor a master.
var ErrUnknownKey = errors.New("unknown routine or master")

// Library is a layered catalog of poses, routines and masters. Iteration
// follows first definition order; redefining an ID keeps its position.
//
// A Library is not safe for concurrent mutation.
type Library struct {
	poses     map[ir.PoseRef]ir.Pose
	poseOrder []ir.PoseRef

	routines     map[string]ir.RoutineDef
	routineOrder []string

	masters     map[string]ir.MasterDef
	masterOrder []string
}

// New builds a library from layers applied in order.
func New(layers ...Definitions) *Library {
	l := &Library{
		poses:    make(map[ir.PoseRef]ir.Pose),
		routines: make(map[string]ir.RoutineDef),
		masters:  make(map[string]ir.MasterDef),
	}
	for _, d := range layers {
		l.Merge(d)
	}
	return l
}

// Merge applies a layer; its definitions replace any with the same ID.
func (l *Library) Merge(d Definitions) {
	for _, p := range d.Poses {
		l.putPose(p)
	}
	for _, r := range d.Routines {
		l.putRoutine(r)
	}
	for _, m := range d.Masters {
		if _, ok := l.masters[m.ID]; !ok {
			l.masterOrder = append(l.masterOrder, m.ID)
		}
		l.masters[m.ID] = m
	}
}

func (l *Library) putPose(p ir.Pose) {
	if _, ok := l.poses[p.ID]; !ok {
		l.poseOrder = append(l.poseOrder, p.ID)
	}
	l.poses[p.ID] = p
}

func (l *Library) putRoutine(r ir.RoutineDef) {
	if _, ok := l.routines[r.ID]; !ok {
		l.routineOrder = append(l.routineOrder, r.ID)
	}
	l.routines[r.ID] = r
}

// AddCustomPoses layers user-created poses. Poses without a category are
// filed as custom.
func (l *Library) AddCustomPoses(poses ...ir.Pose) {
	for _, p := range poses {
		p.Custom = true
		if p.Category == "" {
			p.Category = ir.CategoryCustom
		}
		l.putPose(p)
	}
}

// AddPlaylist layers a saved playlist under PlaylistPrefix+name.
func (l *Library) AddPlaylist(name string, r ir.RoutineDef) {
	r.ID = PlaylistPrefix + name
	r.Label = PlaylistLabel(name)
	if r.RepeatCount < 1 {
		r.RepeatCount = 1
	}
	l.putRoutine(r)
}

// PlaylistLabel is the display label of a saved playlist.
func PlaylistLabel(name string) string {
	return "Custom: " + name
}

// Pose looks up a pose by ID.
func (l *Library) Pose(id ir.PoseRef) (ir.Pose, bool) {
	p, ok := l.poses[id]
	return p, ok
}

// Routine looks up a routine by ID.
func (l *Library) Routine(id string) (ir.RoutineDef, bool) {
	r, ok := l.routines[id]
	return r, ok
}

// Master looks up a master by ID.
func (l *Library) Master(id string) (ir.MasterDef, bool) {
	m, ok := l.masters[id]
	return m, ok
}

// Label returns the display label of a pose, or its ID when unknown.
func (l *Library) Label(id ir.PoseRef) string {
	if p, ok := l.poses[id]; ok && p.Label != "" {
		return p.Label
	}
	return string(id)
}

// SpokenLabel returns the text announced for a pose.
func (l *Library) SpokenLabel(id ir.PoseRef) string {
	if p, ok := l.poses[id]; ok {
		return p.SpokenLabel()
	}
	return strings.ReplaceAll(string(id), "_", " ")
}

// Poses returns the poses of a category in catalog order. An empty category
// returns every pose.
func (l *Library) Poses(category string) []ir.Pose {
	out := []ir.Pose{}
	for _, id := range l.poseOrder {
		p := l.poses[id]
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Routines returns every routine in catalog order.
func (l *Library) Routines() []ir.RoutineDef {
	out := make([]ir.RoutineDef, 0, len(l.routineOrder))
	for _, id := range l.routineOrder {
		out = append(out, l.routines[id])
	}
	return out
}

// Masters returns every master in catalog order.
func (l *Library) Masters() []ir.MasterDef {
	out := make([]ir.MasterDef, 0, len(l.masterOrder))
	for _, id := range l.masterOrder {
		out = append(out, l.masters[id])
	}
	return out
}

// Catalog returns the existence checks used by compiler.Validate.
func (l *Library) Catalog() compiler.Catalog {
	return compiler.Catalog{
		HasPose: func(id ir.PoseRef) bool {
			_, ok := l.poses[id]
			return ok
		},
		HasRoutine: func(id string) bool {
			_, ok := l.routines[id]
			return ok
		},
	}
}

// Validate checks every definition against the catalog. Routine and master
// IDs share one namespace.
func (l *Library) Validate() []compiler.ValidationError {
	var errs []compiler.ValidationError
	cat := l.Catalog()
	for _, id := range l.poseOrder {
		errs = append(errs, compiler.Validate(l.poses[id], cat)...)
	}
	for _, id := range l.routineOrder {
		errs = append(errs, compiler.Validate(l.routines[id], cat)...)
	}
	for _, id := range l.masterOrder {
		errs = append(errs, compiler.Validate(l.masters[id], cat)...)
	}
	keys := append(append([]string{}, l.routineOrder...), l.masterOrder...)
	errs = append(errs, compiler.ValidateUniqueIDs("routine", keys)...)
	return errs
}

// Selection is a resolved routine or master key. Exactly one of Routine and
// Master is set.
type Selection struct {
	Key     string
	Label   string
	Routine *ir.RoutineDef
	Master  *ir.MasterDef
}

// IsMaster reports whether the selection is a master.
func (s Selection) IsMaster() bool { return s.Master != nil }

// Resolve finds the routine or master named by key. Routines win over
// masters with the same ID.
func (l *Library) Resolve(key string) (Selection, error) {
	if r, ok := l.routines[key]; ok {
		return Selection{Key: key, Label: r.Label, Routine: &r}, nil
	}
	if m, ok := l.masters[key]; ok {
		return Selection{Key: key, Label: m.Label, Master: &m}, nil
	}
	return Selection{}, fmt.Errorf("%q: %w", key, ErrUnknownKey)
}

// Compile resolves key and expands it into a run list. A non-nil rng
// shuffles routines marked for shuffling.
func (l *Library) Compile(key string, ov ir.Overrides, rng *rand.Rand) ([]ir.RunStep, Selection, error) {
	sel, err := l.Resolve(key)
	if err != nil {
		return nil, sel, err
	}
	var opts []compiler.Option
	if rng != nil {
		opts = append(opts, compiler.WithShuffle(rng))
	}

	var run []ir.RunStep
	if sel.IsMaster() {
		run, err = compiler.CompileMaster(*sel.Master, l.Routine, ov, opts...)
	} else {
		run, err = compiler.Compile(*sel.Routine, ov, opts...)
	}
	if err != nil {
		return nil, sel, fmt.Errorf("compile %q: %w", key, err)
	}
	return run, sel, nil
}
