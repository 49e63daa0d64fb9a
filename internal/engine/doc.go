// Package engine implements the poser phase engine.
//
// The engine plays a compiled run list one step at a time. Each step moves
// through three phases:
//
//	Transition (transition duration, skipped when zero)
//	Countdown  (fixed 3 s, "3-2-1")
//	Hold       (hold duration)
//
// Rest steps (ir.RestMarker) consist of their Transition only.
//
// ARCHITECTURE:
//
// Injected Scheduler:
// Time only advances when the Scheduler calls Tick. Production uses a
// TickerScheduler backed by time.Ticker; tests drive ticks by hand so every
// boundary is deterministic. Each tick adds exactly TickInterval to the
// elapsed time of the current phase.
//
// Events:
// State changes produce events (StepStarted, PhaseChanged, HalfwayReached,
// StepAdvanced, SessionEnded) stamped with a monotonic seq from Clock.
// Events are collected while the state lock is held and published on the
// Bus after it is released, so handlers may query the engine freely. Handlers
// must not block; slow work belongs on the subscriber's own goroutine.
//
// Transport:
// Start, Pause, Next, Previous, Reset and Stop are synchronous and safe from
// any goroutine. Invalid calls (Previous at index 0, Next with no run list)
// are explicit no-ops, never panics.
package engine
