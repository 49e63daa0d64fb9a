package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/roach88/poser/internal/cues"
	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/recorder"
	"github.com/roach88/poser/internal/session"
	"github.com/roach88/poser/internal/testutil"
)

// drillEpoch is the wall-clock time stamped on recorded sessions.
var drillEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness drives a session controller through a scenario on virtual time.
//
// The scheduler, the cue timers and the wall clock are all manual, so a
// scenario produces the same trace on every run.
type Harness struct {
	ctrl    *session.Controller
	sched   *testutil.ManualScheduler
	timers  *testutil.ManualTimers
	history *recorder.MemoryHistory
	logger  *slog.Logger
	sub     string

	mu     sync.Mutex
	at     time.Duration
	result *Result
}

// Run executes a scenario against the built-in library, layered with the
// scenario's library directory when it names one.
func Run(scenario *Scenario) (*Result, error) {
	lib, err := session.LoadLibrary(context.Background(), scenario.Library, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return RunWith(scenario, lib)
}

// RunWith executes a scenario against lib.
//
// Execution flow:
//  1. Build a controller with manual scheduler, timers and recording cue backends
//  2. Select the scenario's routine with its overrides
//  3. Apply each step, delivering cues after every input and tick
//  4. Evaluate assertions against the trace, final state and history
func RunWith(scenario *Scenario, lib *library.Library) (*Result, error) {
	ctx := context.Background()

	h := &Harness{
		sched:   testutil.NewManualScheduler(),
		timers:  testutil.NewManualTimers(),
		history: recorder.NewMemoryHistory(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		result:  NewResult(),
	}
	backends := cueRecorder{h: h}
	clock := testutil.NewDeterministicClock(drillEpoch, time.Minute)

	h.ctrl = session.New(lib, scenario.settings(),
		session.WithScheduler(h.sched),
		session.WithSessionIDs(testutil.NewFixedSessionIDs(scenario.SessionID)),
		session.WithHistory(h.history),
		session.WithRand(rand.New(rand.NewSource(1))),
		session.WithNow(clock.Now),
		session.WithCueBackends(
			cues.WithSpeaker(backends),
			cues.WithToner(backends),
			cues.WithHaptic(backends),
			cues.WithTimers(h.timers),
		),
	)
	defer h.ctrl.Close()
	h.sub = h.ctrl.SubscribeAll(h.onEvent)

	if _, err := h.ctrl.Select(scenario.Routine, scenario.Overrides.Overrides()); err != nil {
		return nil, fmt.Errorf("failed to select %q: %w", scenario.Routine, err)
	}

	for i, step := range scenario.Steps {
		if err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result := h.finish(ctx)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (s *Scenario) settings() session.Settings {
	st := session.DefaultSettings()
	st.Halfway = s.Settings.Halfway
	st.HoldTargetSec = s.Settings.HoldTargetSec
	st.KeepAwake = false
	st.Randomize = false
	if s.Settings.Voice != nil {
		st.Cues.Voice = *s.Settings.Voice
		st.Cues.HalfwayVoice = *s.Settings.Voice
	}
	if s.Settings.Beep != nil {
		st.Cues.BeepOnTransition = *s.Settings.Beep
	}
	if s.Settings.AnnounceTurns != nil {
		st.Cues.AnnounceTurns = *s.Settings.AnnounceTurns
	}
	if s.Settings.Haptics != nil {
		st.Cues.Haptics = *s.Settings.Haptics
	}
	return st
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	switch {
	case step.Do != "":
		h.logger.Debug("control", "do", step.Do, "at", h.now())
		if err := h.press(ctx, step.Do); err != nil {
			return err
		}
		h.deliver(ctx, 0)
	case step.Tick > 0:
		h.tick(ctx, step.Tick)
	case step.Seconds > 0:
		h.tick(ctx, int(math.Round(step.Seconds*float64(time.Second)/float64(engine.TickInterval))))
	}
	return nil
}

func (h *Harness) press(ctx context.Context, control string) error {
	switch control {
	case DoStart:
		return h.ctrl.Start(ctx)
	case DoPause:
		h.ctrl.Pause()
	case DoNext:
		h.ctrl.Next()
	case DoPrevious:
		h.ctrl.Previous()
	case DoReset:
		h.ctrl.Reset()
	case DoStop:
		h.ctrl.Stop()
	default:
		return fmt.Errorf("unknown control %q", control)
	}
	return nil
}

// tick fires the scheduler n times. Virtual time moves one tick interval per
// firing whether or not the engine is running, and due cues are delivered
// after each one.
func (h *Harness) tick(ctx context.Context, n int) {
	for range n {
		h.mu.Lock()
		h.at += engine.TickInterval
		h.mu.Unlock()

		h.sched.Advance(1)
		h.deliver(ctx, engine.TickInterval)
	}
}

// deliver fires cue timers due within d and drains the dispatcher's queues
// into the recording backends.
func (h *Harness) deliver(ctx context.Context, d time.Duration) {
	h.timers.Advance(d)
	h.ctrl.DrainCues(ctx)
}

func (h *Harness) now() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.at
}

func (h *Harness) record(e TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e.AtMS = h.at.Milliseconds()
	h.result.Trace = append(h.result.Trace, e)
}

func (h *Harness) onEvent(ev engine.Event) {
	e := TraceEvent{
		Kind: KindEvent,
		Type: string(ev.Type),
		Step: ev.StepIndex,
		Pose: string(ev.Step.Pose),
	}
	switch ev.Type {
	case engine.EventPhaseChanged:
		e.From = ev.From.String()
		e.To = ev.To.String()
	case engine.EventStepAdvanced:
		e.Prev = ev.PrevIndex
	case engine.EventSessionEnded:
		e.Reason = string(ev.Reason)
	}
	h.record(e)
}

// finish detaches the trace and collects the final state. Closing the
// controller afterwards must not add entries to a returned trace.
func (h *Harness) finish(ctx context.Context) *Result {
	h.ctrl.Unsubscribe(h.sub)

	h.mu.Lock()
	result := h.result
	h.mu.Unlock()

	result.Final = h.ctrl.Snapshot()
	records, err := h.ctrl.History(ctx, -1)
	if err != nil {
		h.logger.Warn("failed to list history", "error", err)
	}
	for _, rec := range records {
		result.History = append(result.History, RecordSummary{
			ID:             rec.ID,
			Reason:         string(rec.Reason),
			TensionSec:     rec.TensionSec,
			TotalSec:       rec.TotalSec,
			PosesCompleted: rec.PosesCompleted,
		})
	}
	return result
}
