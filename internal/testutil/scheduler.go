package testutil

import (
	"sync"
	"time"
)

// ManualScheduler is a tick source driven by the test.
//
// It satisfies engine.Scheduler. Nothing happens until Advance is called;
// each advanced tick calls the registered tick func once, as long as the
// scheduler is still started.
type ManualScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	tick     func()
	running  bool
	fired    int
	starts   int
}

// NewManualScheduler creates a stopped scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Start records the tick func.
func (s *ManualScheduler) Start(interval time.Duration, tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	s.tick = tick
	s.running = true
	s.starts++
}

// Stop suspends ticking. Safe to call from inside a tick.
func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Advance fires up to n ticks and returns how many fired. It stops early
// when the scheduler is stopped, e.g. by the session ending.
func (s *ManualScheduler) Advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		s.mu.Lock()
		if !s.running || s.tick == nil {
			s.mu.Unlock()
			break
		}
		tick := s.tick
		s.fired++
		s.mu.Unlock()

		tick()
		fired++
	}
	return fired
}

// AdvanceBy fires as many ticks as fit in d.
func (s *ManualScheduler) AdvanceBy(d time.Duration) int {
	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()
	if interval <= 0 {
		return 0
	}
	return s.Advance(int(d / interval))
}

// Running reports whether the scheduler is started.
func (s *ManualScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Fired returns the total number of ticks delivered.
func (s *ManualScheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Starts returns how many times Start was called.
func (s *ManualScheduler) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}
