package cues

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable reports that a backend has no usable implementation on this
// machine (no speech binary on PATH, unsupported OS).
var ErrUnavailable = errors.New("cue backend unavailable")

// Tone is one short beep.
type Tone struct {
	Duration  time.Duration
	Frequency float64 // Hz
	Gain      float64 // 0..1
}

// Tones played by the dispatcher.
var (
	TransitionTone = Tone{Duration: 100 * time.Millisecond, Frequency: 880, Gain: 0.18}
	HalfwayTone    = Tone{Duration: 140 * time.Millisecond, Frequency: 1200, Gain: 0.25}
	CountdownTone  = Tone{Duration: 120 * time.Millisecond, Frequency: 1000, Gain: 0.22}
	FinalTone      = Tone{Duration: 180 * time.Millisecond, Frequency: 1400, Gain: 0.28}
)

// TransitionPulse is the haptic pulse that accompanies a pose announcement.
const TransitionPulse = 30 * time.Millisecond

// Speaker speaks text aloud. Cancel interrupts any utterance in progress.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Toner plays short tones.
type Toner interface {
	Tone(ctx context.Context, t Tone) error
}

// Haptic produces a vibration pulse.
type Haptic interface {
	Vibrate(ctx context.Context, d time.Duration) error
}

// WakeLock keeps the display awake while held.
// Acquire and Release are idempotent.
type WakeLock interface {
	Acquire(ctx context.Context) error
	Release() error
}

// Timers schedules a one-shot callback and returns a func that cancels it.
// time.AfterFunc satisfies it through RealTimers.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// RealTimers schedules callbacks on wall-clock time.
type RealTimers struct{}

// AfterFunc wraps time.AfterFunc.
func (RealTimers) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
