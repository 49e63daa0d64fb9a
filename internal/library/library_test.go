package library

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/ir"
)

func TestBuiltinCatalog(t *testing.T) {
	lib, err := Builtin()
	require.NoError(t, err)

	assert.Len(t, lib.Poses(""), 28)
	assert.Len(t, lib.Poses(ir.CategorySymmetry), 3)
	assert.Len(t, lib.Poses(ir.CategoryMuscularity), 7)
	assert.Len(t, lib.Poses(ir.CategoryOptional), 1)
	assert.Len(t, lib.Poses(ir.CategoryFavourite), 17)
	assert.Empty(t, lib.Poses(ir.CategoryCustom))

	assert.Empty(t, lib.Validate())
}

func TestBuiltinRoutines(t *testing.T) {
	lib := MustBuiltin()

	ids := []string{}
	for _, r := range lib.Routines() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"classic_symmetry_loop", "classic_muscularity", "favourites_vacuum_flow"}, ids)

	loop, ok := lib.Routine("classic_symmetry_loop")
	require.True(t, ok)
	assert.Equal(t, "Classic Symmetry Loop", loop.Label)
	assert.Equal(t, 2, loop.RepeatCount)
	assert.True(t, loop.SymmetryTurn)
	assert.False(t, loop.Shuffle)
	require.Len(t, loop.Items, 5)
	assert.Equal(t, ir.RoutineItem{Pose: "back_relaxed", Transition: 5 * time.Second, Hold: 20 * time.Second}, loop.Items[2])

	musc, ok := lib.Routine("classic_muscularity")
	require.True(t, ok)
	assert.Equal(t, 1, musc.RepeatCount)
	assert.True(t, musc.Shuffle)
	assert.Len(t, musc.Items, 9)

	master, ok := lib.Master("classic_full_session")
	require.True(t, ok)
	assert.Equal(t, "Classic Full Session", master.Label)
	require.Len(t, master.Sequence, 3)
	require.NotNil(t, master.Sequence[0].Override)
	assert.Equal(t, 2, *master.Sequence[0].Override.RepeatCount)
	assert.Nil(t, master.Sequence[1].Override)
}

func TestBuiltinIsIsolated(t *testing.T) {
	a := MustBuiltin()
	a.AddCustomPoses(ir.Pose{ID: "lat_spread", Label: "Lat Spread"})

	b := MustBuiltin()
	_, ok := b.Pose("lat_spread")
	assert.False(t, ok)
}

func TestLabels(t *testing.T) {
	lib := MustBuiltin()

	assert.Equal(t, "Side Chest (left)", lib.Label("side_chest_left"))
	assert.Equal(t, "Side chest, left", lib.SpokenLabel("side_chest_left"))
	assert.Equal(t, "Vacuum", lib.SpokenLabel("vacuum"))
	assert.Equal(t, "mystery_pose", lib.Label("mystery_pose"))
	assert.Equal(t, "mystery pose", lib.SpokenLabel("mystery_pose"))
}

func TestMergeLaterLayerWins(t *testing.T) {
	base := Definitions{
		Poses: []ir.Pose{
			{ID: "a", Label: "A", Category: ir.CategoryFavourite},
			{ID: "b", Label: "B", Category: ir.CategoryFavourite},
		},
	}
	over := Definitions{
		Poses: []ir.Pose{
			{ID: "a", Label: "A prime", Category: ir.CategoryFavourite},
			{ID: "c", Label: "C", Category: ir.CategorySymmetry},
		},
	}

	lib := New(base, over)

	poses := lib.Poses("")
	require.Len(t, poses, 3)
	assert.Equal(t, ir.PoseRef("a"), poses[0].ID)
	assert.Equal(t, "A prime", poses[0].Label)
	assert.Equal(t, ir.PoseRef("c"), poses[2].ID)
}

func TestAddCustomPoses(t *testing.T) {
	lib := MustBuiltin()
	lib.AddCustomPoses(ir.Pose{ID: "lat_spread", Label: "Lat Spread"})

	p, ok := lib.Pose("lat_spread")
	require.True(t, ok)
	assert.True(t, p.Custom)
	assert.Equal(t, ir.CategoryCustom, p.Category)
	assert.Len(t, lib.Poses(ir.CategoryCustom), 1)
}

func TestAddPlaylist(t *testing.T) {
	lib := MustBuiltin()
	lib.AddPlaylist("morning", ir.RoutineDef{
		Label: "ignored",
		Items: []ir.RoutineItem{{Pose: "vacuum", Transition: 3 * time.Second, Hold: 10 * time.Second}},
	})

	sel, err := lib.Resolve("custom_morning")
	require.NoError(t, err)
	assert.False(t, sel.IsMaster())
	assert.Equal(t, "Custom: morning", sel.Label)
	assert.Equal(t, 1, sel.Routine.RepeatCount)
	assert.Empty(t, lib.Validate())
}

func TestResolve(t *testing.T) {
	lib := MustBuiltin()

	sel, err := lib.Resolve("classic_full_session")
	require.NoError(t, err)
	assert.True(t, sel.IsMaster())
	assert.Equal(t, "Classic Full Session", sel.Label)

	_, err = lib.Resolve("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))
}

func TestCompileRoutine(t *testing.T) {
	lib := MustBuiltin()

	run, sel, err := lib.Compile("classic_symmetry_loop", ir.Overrides{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Classic Symmetry Loop", sel.Label)
	require.Len(t, run, 10)
	assert.False(t, run[0].NeedsQuarterTurn)
	assert.True(t, run[1].NeedsQuarterTurn)
	assert.False(t, run[5].NeedsQuarterTurn)
	assert.Equal(t, 250*time.Second, ir.TotalDuration(run))
}

func TestCompileMaster(t *testing.T) {
	lib := MustBuiltin()

	run, _, err := lib.Compile("classic_full_session", ir.Overrides{}, nil)
	require.NoError(t, err)
	// 2x5 symmetry + 9 muscularity + 5 flow
	assert.Len(t, run, 24)
	assert.Equal(t, ir.PoseRef("front_double_biceps"), run[10].Pose)
	assert.Equal(t, ir.PoseRef("vacuum"), run[19].Pose)
}

func TestCompileShuffleKeepsPoses(t *testing.T) {
	lib := MustBuiltin()

	run, _, err := lib.Compile("classic_muscularity", ir.Overrides{}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	musc, _ := lib.Routine("classic_muscularity")
	want := []ir.PoseRef{}
	for _, it := range musc.Items {
		want = append(want, it.Pose)
	}
	got := []ir.PoseRef{}
	for _, s := range run {
		got = append(got, s.Pose)
	}
	assert.ElementsMatch(t, want, got)
}

func TestCompileUnknown(t *testing.T) {
	_, _, err := MustBuiltin().Compile("missing", ir.Overrides{}, nil)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestValidateReportsProblems(t *testing.T) {
	lib := New(Definitions{
		Poses: []ir.Pose{{ID: "a", Label: "A", Category: ir.CategoryFavourite}},
		Routines: []ir.RoutineDef{
			{ID: "r", Label: "R", RepeatCount: 1, Items: []ir.RoutineItem{{Pose: "ghost", Hold: time.Second}}},
		},
		Masters: []ir.MasterDef{
			{ID: "r", Label: "M", Sequence: []ir.MasterStep{{Routine: "r"}}},
		},
	})

	codes := map[string]bool{}
	for _, e := range lib.Validate() {
		codes[e.Code] = true
	}
	assert.True(t, codes["E112"], "unknown pose")
	assert.True(t, codes["E122"], "routine and master share an id")
}
