package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/testutil"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// ticks converts seconds to a number of engine ticks.
func ticks(n int) int { return int(secs(n) / TickInterval) }

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range l.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// phases returns the To phase of every PhaseChanged event.
func (l *eventLog) phases() []ir.Phase {
	var out []ir.Phase
	for _, ev := range l.ofType(EventPhaseChanged) {
		out = append(out, ev.To)
	}
	return out
}

func newTestEngine(t *testing.T, run []ir.RunStep, opts ...EngineOption) (*Engine, *testutil.ManualScheduler, *eventLog) {
	t.Helper()
	sched := testutil.NewManualScheduler()
	base := []EngineOption{
		WithScheduler(sched),
		WithSessionIDs(testutil.NewFixedSessionIDs("session-1")),
	}
	e := New(append(base, opts...)...)
	log := &eventLog{}
	e.Bus().SubscribeAll(log.add)
	e.Load(run)
	return e, sched, log
}

func TestEngine_StepPhaseSequence(t *testing.T) {
	run := []ir.RunStep{
		{Pose: "front_relaxed", Transition: secs(5), Hold: secs(20)},
		{Pose: "side_relaxed", Transition: secs(5), Hold: secs(20)},
	}
	e, sched, log := newTestEngine(t, run)

	require.NoError(t, e.Start())
	assert.Equal(t, ir.PhaseTransition, e.Snapshot().Phase)

	sched.Advance(ticks(5) - 1)
	assert.Equal(t, ir.PhaseTransition, e.Snapshot().Phase)
	sched.Advance(1)
	assert.Equal(t, ir.PhaseCountdown, e.Snapshot().Phase, "transition ends at exactly 5 s")

	sched.Advance(ticks(3))
	assert.Equal(t, ir.PhaseHold, e.Snapshot().Phase, "countdown is 3 s")

	sched.Advance(ticks(20) - 1)
	s := e.Snapshot()
	assert.Equal(t, ir.PhaseHold, s.Phase)
	assert.Equal(t, 0, s.StepIndex)

	sched.Advance(1)
	s = e.Snapshot()
	assert.Equal(t, 1, s.StepIndex, "advance after 28 s of wall time")
	assert.Equal(t, ir.PhaseTransition, s.Phase)
	assert.Equal(t, time.Duration(0), s.Elapsed)
	assert.Equal(t, ticks(28), sched.Fired())

	assert.Equal(t, []ir.Phase{ir.PhaseTransition, ir.PhaseCountdown, ir.PhaseHold, ir.PhaseTransition}, log.phases())
	advanced := log.ofType(EventStepAdvanced)
	require.Len(t, advanced, 1)
	assert.Equal(t, 0, advanced[0].PrevIndex)
	assert.Equal(t, 1, advanced[0].StepIndex)
}

func TestEngine_ZeroTransitionSkipsToCountdown(t *testing.T) {
	e, _, log := newTestEngine(t, []ir.RunStep{{Pose: "vacuum", Hold: secs(10)}})

	require.NoError(t, e.Start())
	assert.Equal(t, ir.PhaseCountdown, e.Snapshot().Phase)
	assert.Equal(t, []ir.Phase{ir.PhaseCountdown}, log.phases())
}

func TestEngine_CumulativeHold(t *testing.T) {
	run := []ir.RunStep{
		{Pose: "front_relaxed", Transition: secs(2), Hold: secs(20)},
		{Pose: "side_relaxed", Transition: secs(3), Hold: secs(25)},
	}
	e, sched, log := newTestEngine(t, run)

	require.NoError(t, e.Start())
	fired := sched.Advance(10_000)
	assert.Equal(t, ticks(2+3+20+3+3+25), fired, "scheduler stops when the session completes")

	ended := log.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ir.ReasonComplete, ended[0].Reason)
	assert.Equal(t, secs(45), ended[0].State.CumulativeHold)
	assert.Equal(t, secs(5), ended[0].State.CumulativeTransition)
	assert.Equal(t, 1, ended[0].State.StepIndex)

	s := e.Snapshot()
	assert.Equal(t, ir.PhaseStopped, s.Phase)
	assert.False(t, s.Running)
	assert.Equal(t, ir.ReasonComplete, s.EndReason)
	assert.False(t, sched.Running())
}

func TestEngine_HoldTargetEndsMidStep(t *testing.T) {
	run := []ir.RunStep{
		{Pose: "front_relaxed", Transition: secs(5), Hold: secs(20)},
		{Pose: "side_relaxed", Transition: secs(5), Hold: secs(25)},
		{Pose: "back_relaxed", Transition: secs(5), Hold: secs(20)},
	}
	e, sched, log := newTestEngine(t, run, WithHoldTarget(40))

	require.NoError(t, e.Start())
	fired := sched.Advance(10_000)

	// 28 s for step one, then 5 + 3 + 20 s into step two.
	assert.Equal(t, ticks(28+28), fired)

	ended := log.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ir.ReasonTargetReached, ended[0].Reason)
	assert.Equal(t, 1, ended[0].StepIndex, "ended during the second hold")
	assert.GreaterOrEqual(t, ir.FloorSeconds(ended[0].State.CumulativeHold), 40)
	assert.Equal(t, 40, e.HoldTarget().Seconds())
}

func TestEngine_HoldTargetIgnoredByNext(t *testing.T) {
	run := []ir.RunStep{
		{Pose: "a", Hold: secs(5)},
		{Pose: "b", Hold: secs(5)},
	}
	e, sched, log := newTestEngine(t, run, WithHoldTarget(1))

	require.NoError(t, e.Start())
	sched.Advance(ticks(3)) // countdown only
	e.Next()
	assert.Equal(t, 1, e.Snapshot().StepIndex)
	assert.Empty(t, log.ofType(EventSessionEnded))
}

func TestEngine_PreviousAtZeroIsNoop(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{
		{Pose: "a", Transition: secs(2), Hold: secs(5)},
		{Pose: "b", Transition: secs(2), Hold: secs(5)},
	})

	require.NoError(t, e.Start())
	sched.Advance(7)
	before := e.Snapshot()
	count := len(log.all())

	e.Previous()
	e.Previous()

	assert.Equal(t, before, e.Snapshot())
	assert.Len(t, log.all(), count, "no events")
}

func TestEngine_PreviousReentersStep(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{
		{Pose: "a", Transition: secs(2), Hold: secs(5)},
		{Pose: "b", Hold: secs(5)},
	})

	require.NoError(t, e.Start())
	e.Next()
	sched.Advance(ticks(4))
	require.Equal(t, ir.PhaseHold, e.Snapshot().Phase)

	e.Previous()
	s := e.Snapshot()
	assert.Equal(t, 0, s.StepIndex)
	assert.Equal(t, ir.PhaseTransition, s.Phase)
	assert.Equal(t, time.Duration(0), s.Elapsed)
	assert.False(t, s.HalfwayFired)
	assert.Len(t, log.ofType(EventStepStarted), 3)
}

func TestEngine_PauseResumePreservesElapsed(t *testing.T) {
	e, sched, _ := newTestEngine(t, []ir.RunStep{{Pose: "vacuum", Hold: secs(20)}})

	require.NoError(t, e.Start())
	sched.Advance(ticks(3) + ticks(10))
	require.Equal(t, ir.PhaseHold, e.Snapshot().Phase)

	e.Pause()
	paused := e.Snapshot()
	remaining := e.Remaining()
	assert.True(t, paused.Paused())
	assert.Equal(t, secs(10), paused.Elapsed)

	assert.Zero(t, sched.Advance(500), "no ticks while paused")
	assert.Equal(t, paused, e.Snapshot())

	require.NoError(t, e.Start())
	resumed := e.Snapshot()
	assert.Equal(t, secs(10), resumed.Elapsed)
	assert.Equal(t, ir.PhaseHold, resumed.Phase)
	assert.Equal(t, remaining, e.Remaining())

	assert.Equal(t, ticks(10), sched.Advance(10_000))
	assert.Equal(t, ir.PhaseStopped, e.Snapshot().Phase)
}

func TestEngine_RestStep(t *testing.T) {
	run := []ir.RunStep{
		{Pose: "a", Hold: secs(1)},
		{Pose: ir.RestMarker, Transition: secs(2)},
		{Pose: "b", Hold: secs(1)},
	}
	e, sched, log := newTestEngine(t, run)

	require.NoError(t, e.Start())
	sched.Advance(ticks(3 + 1))
	s := e.Snapshot()
	require.Equal(t, 1, s.StepIndex)
	assert.Equal(t, ir.PhaseTransition, s.Phase)

	sched.Advance(ticks(2))
	assert.Equal(t, 2, e.Snapshot().StepIndex, "rest advances after its transition")
	assert.Equal(t, ir.PhaseCountdown, e.Snapshot().Phase)

	assert.Equal(t, secs(2), e.Snapshot().CumulativeTransition)
	assert.Equal(t, secs(1), e.Snapshot().CumulativeHold)

	phases := log.phases()
	assert.Equal(t, []ir.Phase{
		ir.PhaseCountdown, ir.PhaseHold, // a
		ir.PhaseTransition,              // rest
		ir.PhaseCountdown,               // b
	}, phases)
}

func TestEngine_ZeroHoldAdvancesAfterCountdown(t *testing.T) {
	e, sched, _ := newTestEngine(t, []ir.RunStep{
		{Pose: "a", Hold: 0},
		{Pose: "b", Hold: secs(1)},
	})

	require.NoError(t, e.Start())
	sched.Advance(ticks(3))
	s := e.Snapshot()
	assert.Equal(t, 1, s.StepIndex)
	assert.Equal(t, time.Duration(0), s.CumulativeHold)
}

func TestEngine_Halfway(t *testing.T) {
	t.Run("fires once at half", func(t *testing.T) {
		e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(10)}}, WithHalfwayCue(true))
		require.NoError(t, e.Start())

		sched.Advance(ticks(3) + ticks(5) - 1)
		assert.Empty(t, log.ofType(EventHalfwayReached))
		sched.Advance(1)
		halfway := log.ofType(EventHalfwayReached)
		require.Len(t, halfway, 1)
		assert.True(t, halfway[0].State.HalfwayFired)

		sched.Advance(ticks(4))
		assert.Len(t, log.ofType(EventHalfwayReached), 1)
	})

	t.Run("short holds", func(t *testing.T) {
		e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(4)}}, WithHalfwayCue(true))
		require.NoError(t, e.Start())
		sched.Advance(10_000)
		assert.Empty(t, log.ofType(EventHalfwayReached))
	})

	t.Run("disabled", func(t *testing.T) {
		e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(10)}})
		require.NoError(t, e.Start())
		sched.Advance(10_000)
		assert.Empty(t, log.ofType(EventHalfwayReached))

		e.SetHalfwayCue(true)
		require.NoError(t, e.Start())
		sched.Advance(10_000)
		assert.Len(t, log.ofType(EventHalfwayReached), 1)
	})
}

func TestEngine_NextOnLastCompletes(t *testing.T) {
	e, _, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(5)}})

	require.NoError(t, e.Start())
	e.Next()

	ended := log.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ir.ReasonComplete, ended[0].Reason)
	assert.Equal(t, 0, ended[0].State.StepIndex)
}

func TestEngine_NextWhileIdleMovesStart(t *testing.T) {
	e, _, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(5)}, {Pose: "b", Hold: secs(5)}})

	e.Next()
	e.Next()
	assert.Equal(t, 1, e.Snapshot().StepIndex)
	assert.Equal(t, ir.PhaseIdle, e.Snapshot().Phase)
	assert.Empty(t, log.all())

	require.NoError(t, e.Start())
	started := log.ofType(EventStepStarted)
	require.Len(t, started, 1)
	assert.Equal(t, ir.PoseRef("b"), started[0].Step.Pose)

	e.Previous()
	assert.Equal(t, 0, e.Snapshot().StepIndex)
}

func TestEngine_Stop(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Transition: secs(1), Hold: secs(10)}})

	e.Stop()
	assert.Empty(t, log.all(), "stop while idle is a no-op")

	require.NoError(t, e.Start())
	sched.Advance(ticks(1 + 3 + 2))
	e.Stop()

	s := e.Snapshot()
	assert.Equal(t, ir.PhaseStopped, s.Phase)
	assert.Equal(t, secs(2), s.CumulativeHold, "counters kept")
	assert.Equal(t, secs(1), s.CumulativeTransition)
	assert.False(t, sched.Running())

	ended := log.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ir.ReasonStopped, ended[0].Reason)

	e.Stop()
	e.Next()
	e.Previous()
	assert.Len(t, log.ofType(EventSessionEnded), 1, "stopped is terminal")

	require.NoError(t, e.Start())
	s = e.Snapshot()
	assert.Equal(t, ir.PhaseTransition, s.Phase, "start after stop begins afresh")
	assert.Equal(t, time.Duration(0), s.CumulativeHold)
	assert.Empty(t, s.EndReason)
}

func TestEngine_PauseResumeEvents(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "vacuum", Hold: secs(20)}})

	require.NoError(t, e.Start())
	assert.Empty(t, log.ofType(EventResumed), "a fresh start is not a resume")

	sched.Advance(ticks(2))
	e.Pause()
	e.Pause()
	paused := log.ofType(EventPaused)
	require.Len(t, paused, 1)
	assert.Equal(t, ir.PhaseCountdown, paused[0].State.Phase)
	assert.False(t, paused[0].State.Running)

	require.NoError(t, e.Start())
	resumed := log.ofType(EventResumed)
	require.Len(t, resumed, 1)
	assert.Equal(t, secs(2), resumed[0].State.Elapsed)
	assert.True(t, resumed[0].State.Running)
}

func TestEngine_StopWhilePaused(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(10)}})

	require.NoError(t, e.Start())
	sched.Advance(ticks(4))
	e.Pause()
	e.Stop()

	ended := log.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, secs(1), ended[0].State.CumulativeHold)
}

func TestEngine_Reset(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{
		{Pose: "a", Transition: secs(1), Hold: secs(2)},
		{Pose: "b", Transition: secs(1), Hold: secs(2)},
	})

	require.NoError(t, e.Start())
	sched.Advance(ticks(7))
	e.Pause()
	e.Reset()

	s := e.Snapshot()
	assert.Equal(t, ir.PhaseIdle, s.Phase)
	assert.Equal(t, 0, s.StepIndex)
	assert.Zero(t, s.Elapsed)
	assert.Zero(t, s.CumulativeHold)
	assert.Zero(t, s.CumulativeTransition)
	assert.False(t, s.Running)
	assert.Empty(t, s.SessionID)

	last := log.all()[len(log.all())-1]
	assert.Equal(t, EventPhaseChanged, last.Type)
	assert.Equal(t, ir.PhaseIdle, last.To)
	assert.Empty(t, log.ofType(EventSessionEnded), "reset records nothing")

	n := len(log.all())
	e.Reset()
	assert.Len(t, log.all(), n, "reset while idle emits nothing")
}

func TestEngine_EmptyRunList(t *testing.T) {
	e, sched, log := newTestEngine(t, nil)

	err := e.Start()
	require.Error(t, err)
	assert.True(t, IsEmptyRunList(err))

	e.Next()
	e.Previous()
	e.Pause()
	e.Stop()
	e.Tick()

	assert.Equal(t, ir.PhaseIdle, e.Snapshot().Phase)
	assert.Zero(t, sched.Starts())
	assert.Empty(t, log.all())
	assert.Zero(t, e.Remaining())
	assert.Empty(t, e.Upcoming(3))
}

func TestEngine_LoadResetsRunningEngine(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(10)}})

	require.NoError(t, e.Start())
	sched.Advance(ticks(5))

	run := []ir.RunStep{{Pose: "b", Hold: secs(3)}}
	e.Load(run)
	run[0].Pose = "mutated"

	s := e.Snapshot()
	assert.Equal(t, ir.PhaseIdle, s.Phase)
	assert.False(t, sched.Running())
	assert.Equal(t, ir.PoseRef("b"), e.RunList()[0].Pose, "run list copied on load")
	assert.Empty(t, log.ofType(EventSessionEnded))
}

func TestEngine_StartIsIdempotent(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(10)}})

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.Equal(t, 1, sched.Starts())
	assert.Len(t, log.ofType(EventStepStarted), 1)
}

func TestEngine_EventOrdering(t *testing.T) {
	e, sched, log := newTestEngine(t, []ir.RunStep{
		{Pose: "a", Transition: secs(1), Hold: secs(1)},
		{Pose: "b", Transition: secs(1), Hold: secs(1)},
	})

	require.NoError(t, e.Start())
	sched.Advance(10_000)

	var types []EventType
	var last int64
	for _, ev := range log.all() {
		assert.Greater(t, ev.Seq, last, "seq strictly increasing")
		last = ev.Seq
		assert.Equal(t, "session-1", ev.SessionID)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{
		EventStepStarted, EventPhaseChanged,
		EventPhaseChanged, EventPhaseChanged,
		EventStepAdvanced, EventStepStarted, EventPhaseChanged,
		EventPhaseChanged, EventPhaseChanged,
		EventPhaseChanged, EventSessionEnded,
	}, types)
}

func TestEngine_HandlersMayQuery(t *testing.T) {
	e, sched, _ := newTestEngine(t, []ir.RunStep{{Pose: "a", Hold: secs(1)}})

	var phases []ir.Phase
	e.Subscribe(EventPhaseChanged, func(ev Event) {
		phases = append(phases, e.Snapshot().Phase)
	})

	require.NoError(t, e.Start())
	sched.Advance(10_000)
	assert.Equal(t, []ir.Phase{ir.PhaseCountdown, ir.PhaseHold, ir.PhaseStopped}, phases)
}

func TestEngine_Upcoming(t *testing.T) {
	run := []ir.RunStep{{Pose: "a"}, {Pose: "b"}, {Pose: "c"}, {Pose: "d"}}
	e, _, _ := newTestEngine(t, run)

	assert.Equal(t, run[1:3], e.Upcoming(2))
	assert.Equal(t, run[1:], e.Upcoming(10))
	assert.Empty(t, e.Upcoming(0))

	e.Next()
	e.Next()
	e.Next()
	assert.Empty(t, e.Upcoming(2))
}

func TestEngine_TickerScheduler(t *testing.T) {
	s := NewTickerScheduler()

	var mu sync.Mutex
	count := 0
	s.Start(time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 3
	}, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestTickerScheduler_NoTickAfterStop(t *testing.T) {
	s := NewTickerScheduler()

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	s.Start(50*time.Microsecond, func() {
		mu.Lock()
		count++
		first := count == 1
		mu.Unlock()
		if first {
			s.Stop()
			// let the ticker fire again while this tick is still running
			time.Sleep(5 * time.Millisecond)
			close(done)
		}
	})

	<-done
	time.Sleep(5 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
