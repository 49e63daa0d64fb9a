package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
)

// BuildRecord derives the history record for a session that ended in the
// given state.
//
// Tension is the floored cumulative hold; total adds the cumulative
// transition time before flooring. The step index counts as completed.
func BuildRecord(s engine.Snapshot, reason ir.EndReason, routine string, at time.Time) ir.SessionRecord {
	return ir.SessionRecord{
		ID:             s.SessionID,
		Timestamp:      at,
		TensionSec:     ir.FloorSeconds(s.CumulativeHold),
		TotalSec:       ir.FloorSeconds(s.CumulativeHold + s.CumulativeTransition),
		PosesCompleted: s.StepIndex + 1,
		Reason:         reason,
		Routine:        routine,
	}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNow sets the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder writes a SessionRecord to a HistoryStore on every SessionEnded
// event.
type Recorder struct {
	store HistoryStore
	now   func() time.Time

	mu      sync.Mutex
	routine string
	last    *ir.SessionRecord
	bus     *engine.Bus
	sub     string
}

// New creates a recorder writing to store.
func New(store HistoryStore, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes the recorder to bus, replacing any earlier subscription.
func (r *Recorder) Attach(bus *engine.Bus) {
	r.Detach()
	id := bus.Subscribe(engine.EventSessionEnded, r.onSessionEnded)

	r.mu.Lock()
	r.bus, r.sub = bus, id
	r.mu.Unlock()
}

// Detach removes the subscription.
func (r *Recorder) Detach() {
	r.mu.Lock()
	bus, id := r.bus, r.sub
	r.bus, r.sub = nil, ""
	r.mu.Unlock()

	if bus != nil {
		bus.Unsubscribe(id)
	}
}

// SetRoutine sets the routine label stamped on subsequent records.
func (r *Recorder) SetRoutine(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routine = label
}

// Last returns the most recent record written by this recorder.
func (r *Recorder) Last() (ir.SessionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return ir.SessionRecord{}, false
	}
	return *r.last, true
}

// Store returns the underlying history store.
func (r *Recorder) Store() HistoryStore {
	return r.store
}

func (r *Recorder) onSessionEnded(ev engine.Event) {
	r.mu.Lock()
	rec := BuildRecord(ev.State, ev.Reason, r.routine, r.now())
	r.last = &rec
	r.mu.Unlock()

	if err := r.store.AppendSession(context.Background(), rec); err != nil {
		slog.Warn("failed to record session", "session", rec.ID, "error", err)
		return
	}
	slog.Info("session recorded",
		"session", rec.ID,
		"reason", rec.Reason,
		"tension_sec", rec.TensionSec,
		"total_sec", rec.TotalSec)
}
