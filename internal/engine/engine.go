package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// CountdownDuration is the fixed pre-hold countdown.
const CountdownDuration = 3 * time.Second

// halfwayMinHold is the shortest hold that gets a halfway cue.
const halfwayMinHold = 4 * time.Second

// Engine is the phase engine.
//
// Thread-safety model:
//   - Transport methods and queries: safe from any goroutine
//   - Tick: called by the Scheduler; may also be called directly in tests
//   - Event handlers run after the state lock is released, in seq order,
//     and must not call transport methods synchronously
//
// INVARIANTS:
//   - The run list is never mutated after Load
//   - 0 <= index < len(run) whenever run is non-empty
//   - elapsed resets to 0 on every phase change
//   - cumHold grows only in Hold, cumTransition only in Transition
type Engine struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	run []ir.RunStep
	st  state

	sched   Scheduler
	bus     *Bus
	clock   *Clock
	ids     SessionIDGenerator
	halfway bool
	target  HoldTarget

	pending []Event
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithScheduler sets the tick source. Default: a TickerScheduler.
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		e.sched = s
	}
}

// WithBus publishes events on an existing bus. Default: a new Bus.
func WithBus(b *Bus) EngineOption {
	return func(e *Engine) {
		e.bus = b
	}
}

// WithSessionIDs sets the session ID generator. Default: UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithHalfwayCue enables HalfwayReached events for holds longer than 4 s.
func WithHalfwayCue(enabled bool) EngineOption {
	return func(e *Engine) {
		e.halfway = enabled
	}
}

// WithHoldTarget ends the session once cumulative hold reaches seconds.
// Zero disables the target.
func WithHoldTarget(seconds int) EngineOption {
	return func(e *Engine) {
		e.target = NewHoldTarget(seconds)
	}
}

// New creates an idle Engine with an empty run list.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		sched: NewTickerScheduler(),
		bus:   NewBus(),
		clock: NewClock(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bus returns the bus events are published on.
func (e *Engine) Bus() *Bus {
	return e.bus
}

// Subscribe registers a handler for one event type.
func (e *Engine) Subscribe(t EventType, h Handler) string {
	return e.bus.Subscribe(t, h)
}

// SetHalfwayCue toggles halfway events for subsequent ticks.
func (e *Engine) SetHalfwayCue(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.halfway = enabled
}

// SetHoldTarget replaces the hold target for subsequent ticks.
func (e *Engine) SetHoldTarget(seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = NewHoldTarget(seconds)
}

// HoldTarget returns the configured target.
func (e *Engine) HoldTarget() HoldTarget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// Load replaces the run list and forcibly resets the engine.
// The slice is copied; later changes by the caller are not observed.
func (e *Engine) Load(run []ir.RunStep) {
	e.mu.Lock()
	e.sched.Stop()
	e.run = append([]ir.RunStep(nil), run...)
	e.resetLocked()
	slog.Debug("run list loaded", "steps", len(e.run), "total", ir.TotalDuration(e.run))
	e.unlockAndFlush()
}

// Start begins or resumes the session.
//
// From Idle a new session starts at the current step. From a paused step the
// clock resumes exactly where it stopped. After a session has ended, Start
// begins a fresh session from the first step. With an empty run list Start
// does nothing and returns an EMPTY_RUN_LIST error.
func (e *Engine) Start() error {
	e.mu.Lock()
	if len(e.run) == 0 {
		e.mu.Unlock()
		return newEmptyRunListError()
	}
	if e.st.running {
		e.mu.Unlock()
		return nil
	}

	if e.st.phase == ir.PhaseStopped {
		e.resetLocked()
	}
	e.st.running = true
	if e.st.phase == ir.PhaseIdle {
		e.st.sessionID = e.ids.Generate()
		e.st.endReason = ""
		slog.Info("session started", "session", e.st.sessionID, "step", e.st.index, "steps", len(e.run))
		e.enterStepLocked()
	} else {
		slog.Debug("session resumed", "session", e.st.sessionID, "phase", e.st.phase, "elapsed", e.st.elapsed)
		e.emitLocked(Event{Type: EventResumed})
	}
	e.sched.Start(TickInterval, e.Tick)
	e.unlockAndFlush()
	return nil
}

// Pause suspends the clock. Phase, step and elapsed time are kept.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.st.running {
		e.st.running = false
		e.sched.Stop()
		slog.Debug("session paused", "session", e.st.sessionID, "phase", e.st.phase, "elapsed", e.st.elapsed)
		e.emitLocked(Event{Type: EventPaused})
	}
	e.unlockAndFlush()
}

// Next skips to the following step, ending the session as complete on the
// last one. It does not check the hold target. While idle it only moves the
// starting step.
func (e *Engine) Next() {
	e.mu.Lock()
	switch {
	case len(e.run) == 0 || e.st.phase == ir.PhaseStopped:
	case e.st.phase == ir.PhaseIdle:
		if e.st.index < len(e.run)-1 {
			e.st.index++
		}
	default:
		e.advanceLocked()
	}
	e.unlockAndFlush()
}

// Previous re-enters the preceding step. At index 0 it is a no-op.
func (e *Engine) Previous() {
	e.mu.Lock()
	switch {
	case len(e.run) == 0 || e.st.index == 0 || e.st.phase == ir.PhaseStopped:
	case e.st.phase == ir.PhaseIdle:
		e.st.index--
	default:
		prev := e.st.index
		e.st.index--
		e.emitLocked(Event{Type: EventStepAdvanced, PrevIndex: prev})
		e.enterStepLocked()
	}
	e.unlockAndFlush()
}

// Reset returns to Idle at step 0 with all counters cleared, whether
// running, paused or stopped.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.sched.Stop()
	e.resetLocked()
	e.unlockAndFlush()
}

// Stop ends an in-progress session with reason "stopped". Counters are kept
// so the final state stays visible until the next Start or Reset.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.st.phase.Active() {
		e.endLocked(ir.ReasonStopped)
	}
	e.unlockAndFlush()
}

// Tick advances the current phase by one TickInterval.
func (e *Engine) Tick() {
	e.mu.Lock()
	if !e.st.running || !e.st.phase.Active() {
		e.mu.Unlock()
		return
	}

	step := e.run[e.st.index]
	e.st.elapsed += TickInterval

	switch e.st.phase {
	case ir.PhaseTransition:
		e.st.cumTransition += TickInterval
		if e.st.elapsed >= step.Transition {
			if step.IsRest() {
				e.advanceLocked()
			} else {
				e.setPhaseLocked(ir.PhaseCountdown)
			}
		}

	case ir.PhaseCountdown:
		if e.st.elapsed >= CountdownDuration {
			e.setPhaseLocked(ir.PhaseHold)
			if step.Hold == 0 {
				e.advanceLocked()
			}
		}

	case ir.PhaseHold:
		e.st.cumHold += TickInterval
		if e.halfway && step.Hold > halfwayMinHold && !e.st.halfwayFired && e.st.elapsed >= step.Hold/2 {
			e.st.halfwayFired = true
			e.emitLocked(Event{Type: EventHalfwayReached})
		}
		switch {
		case e.target.Reached(e.st.cumHold):
			e.endLocked(ir.ReasonTargetReached)
		case e.st.elapsed >= step.Hold:
			e.advanceLocked()
		}
	}

	e.unlockAndFlush()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// RunList returns a copy of the loaded run list.
func (e *Engine) RunList() []ir.RunStep {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ir.RunStep(nil), e.run...)
}

// Remaining returns the total session time left. See TimeRemaining.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TimeRemaining(e.run, e.snapshotLocked())
}

// Upcoming returns up to n steps after the current one.
func (e *Engine) Upcoming(n int) []ir.RunStep {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 || len(e.run) == 0 {
		return []ir.RunStep{}
	}
	from := e.st.index + 1
	to := min(from+n, len(e.run))
	if from >= to {
		return []ir.RunStep{}
	}
	return append([]ir.RunStep(nil), e.run[from:to]...)
}

// advanceLocked moves to the next step or completes the session.
func (e *Engine) advanceLocked() {
	if e.st.index >= len(e.run)-1 {
		e.endLocked(ir.ReasonComplete)
		return
	}
	prev := e.st.index
	e.st.index++
	e.emitLocked(Event{Type: EventStepAdvanced, PrevIndex: prev})
	e.enterStepLocked()
}

// enterStepLocked starts the current step in its first phase.
func (e *Engine) enterStepLocked() {
	step := e.run[e.st.index]
	from := e.st.phase

	e.st.elapsed = 0
	e.st.halfwayFired = false
	if step.IsRest() || step.Transition > 0 {
		e.st.phase = ir.PhaseTransition
	} else {
		e.st.phase = ir.PhaseCountdown
	}

	e.emitLocked(Event{Type: EventStepStarted})
	e.emitLocked(Event{Type: EventPhaseChanged, From: from, To: e.st.phase})
}

func (e *Engine) setPhaseLocked(to ir.Phase) {
	from := e.st.phase
	e.st.phase = to
	e.st.elapsed = 0
	e.emitLocked(Event{Type: EventPhaseChanged, From: from, To: to})
}

// endLocked terminates the session and emits SessionEnded with the final
// counters.
func (e *Engine) endLocked(reason ir.EndReason) {
	e.st.running = false
	e.sched.Stop()
	e.st.endReason = reason
	e.setPhaseLocked(ir.PhaseStopped)
	e.emitLocked(Event{Type: EventSessionEnded, Reason: reason})

	slog.Info("session ended",
		"session", e.st.sessionID,
		"reason", reason,
		"tension_sec", ir.FloorSeconds(e.st.cumHold),
		"total_sec", ir.FloorSeconds(e.st.cumHold+e.st.cumTransition),
		"poses", e.st.index+1)
}

func (e *Engine) resetLocked() {
	from := e.st.phase
	e.st = state{}
	if from != ir.PhaseIdle {
		e.emitLocked(Event{Type: EventPhaseChanged, From: from, To: ir.PhaseIdle})
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:            e.st.sessionID,
		Phase:                e.st.phase,
		Running:              e.st.running,
		StepIndex:            e.st.index,
		StepCount:            len(e.run),
		Elapsed:              e.st.elapsed,
		CumulativeHold:       e.st.cumHold,
		CumulativeTransition: e.st.cumTransition,
		HalfwayFired:         e.st.halfwayFired,
		EndReason:            e.st.endReason,
	}
	if e.st.index < len(e.run) {
		s.Step = e.run[e.st.index]
	}
	return s
}

// emitLocked stamps an event and queues it for publication.
func (e *Engine) emitLocked(ev Event) {
	ev.Seq = e.clock.Next()
	ev.SessionID = e.st.sessionID
	ev.StepIndex = e.st.index
	if e.st.index < len(e.run) {
		ev.Step = e.run[e.st.index]
	}
	ev.State = e.snapshotLocked()
	e.pending = append(e.pending, ev)
}

// unlockAndFlush releases the state lock and publishes queued events.
// pubMu is taken before mu is released so concurrent callers publish in
// seq order.
func (e *Engine) unlockAndFlush() {
	events := e.pending
	e.pending = nil
	if len(events) == 0 {
		e.mu.Unlock()
		return
	}

	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()

	for _, ev := range events {
		e.bus.Publish(ev)
	}
}
