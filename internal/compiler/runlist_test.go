package compiler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/ir"
)

func symmetryLoop() ir.RoutineDef {
	poses := []ir.PoseRef{"front_relaxed", "side_relaxed", "back_relaxed", "side_relaxed", "front_relaxed"}
	items := make([]ir.RoutineItem, len(poses))
	for i, p := range poses {
		items[i] = ir.RoutineItem{Pose: p, Transition: 5 * time.Second, Hold: 20 * time.Second}
	}
	return ir.RoutineDef{
		ID:           "classic_symmetry_loop",
		Label:        "Classic Symmetry Loop",
		Items:        items,
		RepeatCount:  2,
		SymmetryTurn: true,
	}
}

func flow() ir.RoutineDef {
	return ir.RoutineDef{
		ID:          "favourites_vacuum_flow",
		Label:       "Favourites Flow",
		RepeatCount: 1,
		Shuffle:     true,
		Items: []ir.RoutineItem{
			{Pose: "vacuum", Transition: 6 * time.Second, Hold: 18 * time.Second},
			{Pose: "teacup", Transition: 6 * time.Second, Hold: 18 * time.Second},
			{Pose: "archer", Transition: 6 * time.Second, Hold: 18 * time.Second},
			{Pose: "victory", Transition: 6 * time.Second, Hold: 18 * time.Second},
			{Pose: "crucifix", Transition: 6 * time.Second, Hold: 18 * time.Second},
		},
	}
}

func countRests(run []ir.RunStep) int {
	n := 0
	for _, s := range run {
		if s.IsRest() {
			n++
		}
	}
	return n
}

func TestCompileRestMarkers(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		r := symmetryLoop()
		r.RepeatCount = n
		r.LoopRest = 30 * time.Second

		run, err := Compile(r, ir.Overrides{})
		require.NoError(t, err)

		assert.Len(t, run, n*len(r.Items)+n-1)
		assert.Equal(t, n-1, countRests(run))
		for _, s := range run {
			if s.IsRest() {
				assert.Equal(t, 30*time.Second, s.Transition)
				assert.Zero(t, s.Hold)
				assert.False(t, s.NeedsQuarterTurn)
			}
		}
	}
}

func TestCompileRestPlacement(t *testing.T) {
	r := symmetryLoop()
	r.LoopRest = 10 * time.Second

	run, err := Compile(r, ir.Overrides{})
	require.NoError(t, err)
	require.Len(t, run, 11)

	assert.True(t, run[5].IsRest(), "rest sits between the two loops")
	assert.False(t, run[10].IsRest(), "no rest after the last loop")
}

func TestCompileNoRestWhenZero(t *testing.T) {
	run, err := Compile(symmetryLoop(), ir.Overrides{})
	require.NoError(t, err)
	assert.Len(t, run, 10)
	assert.Zero(t, countRests(run))
}

func TestCompileOverridesApplyUniformly(t *testing.T) {
	ov := ir.Overrides{
		EveryHold:       ir.Seconds(30),
		EveryTransition: ir.Seconds(2),
	}

	run, err := Compile(symmetryLoop(), ov)
	require.NoError(t, err)
	for _, s := range run {
		assert.Equal(t, 30*time.Second, s.Hold)
		assert.Equal(t, 2*time.Second, s.Transition)
	}
}

func TestCompileUnsetOverridesPreserveItems(t *testing.T) {
	r := flow()
	r.Items[2].Hold = 40 * time.Second
	r.Items[3].Transition = 0

	run, err := Compile(r, ir.Overrides{EveryTransition: ir.Seconds(1)})
	require.NoError(t, err)
	require.Len(t, run, 5)

	assert.Equal(t, 40*time.Second, run[2].Hold, "hold falls through to the item")
	assert.Equal(t, 18*time.Second, run[0].Hold)
	assert.Equal(t, time.Second, run[3].Transition, "transition override replaces zero too")
}

func TestCompileZeroOverrideIsSet(t *testing.T) {
	run, err := Compile(flow(), ir.Overrides{EveryTransition: ir.Seconds(0)})
	require.NoError(t, err)
	for _, s := range run {
		assert.Zero(t, s.Transition)
	}
}

func TestCompileRepeatOverrides(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		run, err := Compile(symmetryLoop(), ir.Overrides{LoopRepeatCount: ir.Int(3)})
		require.NoError(t, err)
		assert.Len(t, run, 15)
	})

	t.Run("floor of one", func(t *testing.T) {
		run, err := Compile(symmetryLoop(), ir.Overrides{LoopRepeatCount: ir.Int(0)})
		require.NoError(t, err)
		assert.Len(t, run, 5)

		r := flow()
		r.RepeatCount = -4
		run, err = Compile(r, ir.Overrides{})
		require.NoError(t, err)
		assert.Len(t, run, 5)
	})

	t.Run("rest override", func(t *testing.T) {
		run, err := Compile(symmetryLoop(), ir.Overrides{LoopRest: ir.Seconds(15)})
		require.NoError(t, err)
		require.Equal(t, 1, countRests(run))
		assert.Equal(t, 15*time.Second, run[5].Transition)
	})
}

func TestCompileQuarterTurn(t *testing.T) {
	t.Run("symmetry routine", func(t *testing.T) {
		r := symmetryLoop()
		r.LoopRest = 5 * time.Second
		run, err := Compile(r, ir.Overrides{})
		require.NoError(t, err)

		j := 0
		for _, s := range run {
			if s.IsRest() {
				j = 0
				continue
			}
			assert.Equal(t, j != 0, s.NeedsQuarterTurn, "item %d of its loop", j)
			j++
		}
	})

	t.Run("other routine", func(t *testing.T) {
		run, err := Compile(flow(), ir.Overrides{LoopRepeatCount: ir.Int(2)})
		require.NoError(t, err)
		for _, s := range run {
			assert.False(t, s.NeedsQuarterTurn)
		}
	})
}

func TestCompileErrors(t *testing.T) {
	t.Run("empty items", func(t *testing.T) {
		_, err := Compile(ir.RoutineDef{ID: "empty"}, ir.Overrides{})
		require.Error(t, err)
		assert.True(t, IsCompileError(err))
		assert.Contains(t, err.Error(), "no items")
	})

	t.Run("negative hold override", func(t *testing.T) {
		_, err := Compile(flow(), ir.Overrides{EveryHold: ir.Seconds(-1)})
		require.Error(t, err)
		assert.True(t, IsCompileError(err))
	})

	t.Run("negative item transition", func(t *testing.T) {
		r := flow()
		r.Items[1].Transition = -time.Second
		_, err := Compile(r, ir.Overrides{})
		require.Error(t, err)

		_, err = Compile(r, ir.Overrides{EveryTransition: ir.Seconds(3)})
		assert.NoError(t, err, "override resolves the negative value")
	})

	t.Run("negative rest", func(t *testing.T) {
		_, err := Compile(flow(), ir.Overrides{LoopRest: ir.Seconds(-5)})
		assert.Error(t, err)
	})

	t.Run("rest marker as item", func(t *testing.T) {
		r := flow()
		r.Items[0].Pose = ir.RestMarker
		_, err := Compile(r, ir.Overrides{})
		assert.Error(t, err)
	})
}

func TestCompileDeterministic(t *testing.T) {
	a, err := Compile(symmetryLoop(), ir.Overrides{EveryHold: ir.Seconds(12)})
	require.NoError(t, err)
	b, err := Compile(symmetryLoop(), ir.Overrides{EveryHold: ir.Seconds(12)})
	require.NoError(t, err)
	assert.Equal(t, ir.MustRunListHash(a), ir.MustRunListHash(b))
}

func TestCompileShuffle(t *testing.T) {
	r := flow()

	plain, err := Compile(r, ir.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, ir.PoseRef("vacuum"), plain[0].Pose, "no rng keeps order")

	a, err := Compile(r, ir.Overrides{}, WithShuffle(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	b, err := Compile(r, ir.Overrides{}, WithShuffle(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed, same order")
	assert.ElementsMatch(t, plain, a)
	assert.Equal(t, ir.PoseRef("vacuum"), r.Items[0].Pose, "input is not mutated")

	sym, err := Compile(symmetryLoop(), ir.Overrides{}, WithShuffle(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	assert.Equal(t, ir.PoseRef("back_relaxed"), sym[2].Pose, "routines without Shuffle keep order")
}

func TestCompileMaster(t *testing.T) {
	routines := map[string]ir.RoutineDef{
		"classic_symmetry_loop":  symmetryLoop(),
		"favourites_vacuum_flow": flow(),
	}
	lookup := func(id string) (ir.RoutineDef, bool) {
		r, ok := routines[id]
		return r, ok
	}

	master := ir.MasterDef{
		ID: "full",
		Sequence: []ir.MasterStep{
			{Routine: "classic_symmetry_loop", Override: &ir.RoutineOverride{RepeatCount: ir.Int(1), LoopRest: ir.Seconds(9)}},
			{Routine: "favourites_vacuum_flow"},
		},
	}

	run, err := CompileMaster(master, lookup, ir.Overrides{})
	require.NoError(t, err)
	require.Len(t, run, 10)
	assert.Zero(t, countRests(run), "single repeat has no rest")
	assert.True(t, run[1].NeedsQuarterTurn)
	assert.False(t, run[6].NeedsQuarterTurn)

	t.Run("user overrides apply to every pass", func(t *testing.T) {
		run, err := CompileMaster(master, lookup, ir.Overrides{EveryHold: ir.Seconds(10)})
		require.NoError(t, err)
		for _, s := range run {
			assert.Equal(t, 10*time.Second, s.Hold)
		}
	})

	t.Run("unknown routine", func(t *testing.T) {
		bad := ir.MasterDef{ID: "bad", Sequence: []ir.MasterStep{{Routine: "nope"}}}
		_, err := CompileMaster(bad, lookup, ir.Overrides{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"nope"`)
	})

	t.Run("empty sequence", func(t *testing.T) {
		_, err := CompileMaster(ir.MasterDef{ID: "empty"}, lookup, ir.Overrides{})
		assert.True(t, IsCompileError(err))
	})
}

func TestMergeOverride(t *testing.T) {
	r := symmetryLoop()
	assert.Equal(t, r, MergeOverride(r, nil))

	merged := MergeOverride(r, &ir.RoutineOverride{SymmetryTurn: ir.Bool(false), RepeatCount: ir.Int(4)})
	assert.False(t, merged.SymmetryTurn)
	assert.Equal(t, 4, merged.RepeatCount)
	assert.True(t, r.SymmetryTurn, "original untouched")
}
