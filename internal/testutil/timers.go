package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualTimers is a virtual-time replacement for time.AfterFunc.
//
// Timers fire only when Advance moves virtual time past their deadline,
// in deadline order, on the caller's goroutine.
type ManualTimers struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	pending []*manualTimer
}

type manualTimer struct {
	id       int
	deadline time.Duration
	fn       func()
	stopped  bool
}

// NewManualTimers creates a timer set at virtual time zero.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// AfterFunc schedules fn after d of virtual time and returns its stop func.
// The stop func reports whether it prevented the call.
func (m *ManualTimers) AfterFunc(d time.Duration, fn func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &manualTimer{id: m.nextID, deadline: m.now + d, fn: fn}
	m.pending = append(m.pending, t)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves virtual time forward by d, firing every due timer.
// Returns the number of timers fired.
func (m *ManualTimers) Advance(d time.Duration) int {
	m.mu.Lock()
	m.now += d
	now := m.now

	var due []*manualTimer
	var keep []*manualTimer
	for _, t := range m.pending {
		switch {
		case t.stopped:
		case t.deadline <= now:
			t.stopped = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	m.pending = keep
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns the number of timers not yet fired or stopped.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}
