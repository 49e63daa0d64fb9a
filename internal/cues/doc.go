// Package cues turns engine events into audible, spoken and haptic cues.
//
// The Dispatcher subscribes to an engine Bus. Its handlers never perform a
// side effect themselves: they enqueue jobs on an unbounded FIFO queue that a
// single worker drains, so a slow speech backend can never stall the tick
// loop. Countdown tones are scheduled through an injected Timers source and
// every job is stamped with a generation; bumping the generation on step
// change, stop or reset discards cues that belong to an earlier step.
//
// Every backend is optional. A nil backend is skipped and a failing one is
// logged at debug level and otherwise ignored.
package cues
