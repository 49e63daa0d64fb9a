package session

import (
	"context"
	"time"

	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
)

// View is everything the session screen renders, read in one call.
type View struct {
	Selection   library.Selection
	State       engine.Snapshot
	Pose        ir.Pose
	Remaining   time.Duration
	Upcoming    []ir.RunStep
	HoldTarget  engine.HoldTarget
	TargetLeft  time.Duration
	HasSelected bool
}

// PhaseLabel names the current phase for display.
func (v View) PhaseLabel() string {
	switch {
	case v.State.Paused():
		return "Paused"
	case v.State.Step.IsRest() && v.State.Phase == ir.PhaseTransition:
		return "Rest"
	}
	switch v.State.Phase {
	case ir.PhaseTransition:
		return "Get ready"
	case ir.PhaseCountdown:
		return "Countdown"
	case ir.PhaseHold:
		return "Hold"
	case ir.PhaseStopped:
		return v.State.EndReason.Message()
	default:
		return "Ready"
	}
}

// View returns the current state with up to upcoming following steps.
func (c *Controller) View(upcoming int) View {
	c.mu.Lock()
	sel, selected := c.sel, c.selected
	c.mu.Unlock()

	state := c.eng.Snapshot()
	target := c.eng.HoldTarget()
	v := View{
		Selection:   sel,
		State:       state,
		Remaining:   engine.TimeRemaining(c.eng.RunList(), state),
		Upcoming:    c.eng.Upcoming(upcoming),
		HoldTarget:  target,
		TargetLeft:  target.Remaining(state.CumulativeHold),
		HasSelected: selected,
	}
	if state.StepCount > 0 {
		v.Pose = c.PoseFor(state.Step.Pose)
	}
	return v
}

// PoseFor returns catalog details for a step's pose. Unknown poses and the
// rest marker get a synthetic entry.
func (c *Controller) PoseFor(ref ir.PoseRef) ir.Pose {
	if ref == ir.RestMarker {
		return ir.Pose{ID: ref, Label: "Rest"}
	}
	if p, ok := c.lib.Pose(ref); ok {
		return p
	}
	return ir.Pose{ID: ref, Label: c.lib.Label(ref)}
}

// Snapshot returns the engine state.
func (c *Controller) Snapshot() engine.Snapshot { return c.eng.Snapshot() }

// RunList returns the loaded run list.
func (c *Controller) RunList() []ir.RunStep { return c.eng.RunList() }

// Remaining returns the total session time left.
func (c *Controller) Remaining() time.Duration { return c.eng.Remaining() }

// Selection returns the current selection and whether one was made.
func (c *Controller) Selection() (library.Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel, c.selected
}

// Overrides returns the overrides of the current selection.
func (c *Controller) Overrides() ir.Overrides {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overrides
}

// Library returns the catalog the controller selects from.
func (c *Controller) Library() *library.Library { return c.lib }

// Subscribe registers h for engine events of type t.
func (c *Controller) Subscribe(t engine.EventType, h engine.Handler) string {
	return c.eng.Subscribe(t, h)
}

// SubscribeAll registers h for every engine event.
func (c *Controller) SubscribeAll(h engine.Handler) string {
	return c.eng.Bus().SubscribeAll(h)
}

// Unsubscribe removes a subscription made with Subscribe or SubscribeAll.
func (c *Controller) Unsubscribe(id string) bool {
	return c.eng.Bus().Unsubscribe(id)
}

// History returns up to limit session records, newest first.
func (c *Controller) History(ctx context.Context, limit int) ([]ir.SessionRecord, error) {
	return c.rec.Store().ListSessions(ctx, limit)
}

// LastRecord returns the record of the most recent session ended by this
// controller.
func (c *Controller) LastRecord() (ir.SessionRecord, bool) {
	return c.rec.Last()
}

// WakeLockHeld reports whether the controller currently holds the wake lock.
func (c *Controller) WakeLockHeld() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeHeld
}
