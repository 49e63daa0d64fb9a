package engine

import (
	"sync"
	"time"
)

// TickInterval is the fixed period between engine ticks.
const TickInterval = 100 * time.Millisecond

// Scheduler is a cancellable periodic tick source.
//
// Start begins calling tick every interval until Stop. Calling Start while
// already started replaces the previous tick source. Stop must be safe to
// call from inside tick and must not wait for an in-flight tick to return.
type Scheduler interface {
	Start(interval time.Duration, tick func())
	Stop()
}

// TickerScheduler drives ticks from a time.Ticker on its own goroutine.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

// NewTickerScheduler returns a stopped wall-clock scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Start implements Scheduler.
func (s *TickerScheduler) Start(interval time.Duration, tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				// Both cases may be ready at once; a closed stop wins.
				select {
				case <-stop:
					return
				default:
				}
				tick()
			case <-stop:
				return
			}
		}
	}()
}

// Stop implements Scheduler.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Running reports whether a tick source is active.
func (s *TickerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}
