package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/roach88/poser/internal/cues"
	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/recorder"
	"github.com/roach88/poser/internal/store"
)

var _ recorder.HistoryStore = (*store.Store)(nil)

// ErrNoSelection is returned by Start before any routine has been selected.
var ErrNoSelection = errors.New("no routine selected")

// Option configures a Controller.
type Option func(*options)

type options struct {
	engineOpts   []engine.EngineOption
	dispatchOpts []cues.DispatcherOption
	history      recorder.HistoryStore
	wake         cues.WakeLock
	rng          *rand.Rand
	now          func() time.Time
}

// WithScheduler sets the engine's tick source.
func WithScheduler(s engine.Scheduler) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, engine.WithScheduler(s)) }
}

// WithSessionIDs sets the session ID generator.
func WithSessionIDs(g engine.SessionIDGenerator) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, engine.WithSessionIDs(g)) }
}

// WithCueBackends passes options to the cue dispatcher.
func WithCueBackends(opts ...cues.DispatcherOption) Option {
	return func(o *options) { o.dispatchOpts = append(o.dispatchOpts, opts...) }
}

// WithHistory sets where session records are written. The default keeps
// them in memory.
func WithHistory(h recorder.HistoryStore) Option {
	return func(o *options) { o.history = h }
}

// WithWakeLock sets the wake lock held while a session runs with
// KeepAwake enabled.
func WithWakeLock(w cues.WakeLock) Option {
	return func(o *options) { o.wake = w }
}

// WithRand sets the source used to shuffle routines when Randomize is on.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithNow sets the clock used to timestamp session records.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Controller runs sessions over a library.
type Controller struct {
	lib  *library.Library
	eng  *engine.Engine
	disp *cues.Dispatcher
	rec  *recorder.Recorder
	wake cues.WakeLock
	rng  *rand.Rand

	mu        sync.Mutex
	settings  Settings
	sel       library.Selection
	selected  bool
	overrides ir.Overrides
	wakeHeld  bool
	sub       string
	closed    bool
}

// New creates a controller. The engine, dispatcher and recorder share one
// event bus and live as long as the controller.
func New(lib *library.Library, settings Settings, opts ...Option) *Controller {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.history == nil {
		o.history = recorder.NewMemoryHistory()
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	engOpts := append([]engine.EngineOption{
		engine.WithHalfwayCue(settings.Halfway),
		engine.WithHoldTarget(settings.HoldTargetSec),
	}, o.engineOpts...)
	dispOpts := append([]cues.DispatcherOption{
		cues.WithLabeler(lib),
		cues.WithOptions(settings.Cues),
	}, o.dispatchOpts...)
	var recOpts []recorder.Option
	if o.now != nil {
		recOpts = append(recOpts, recorder.WithNow(o.now))
	}

	c := &Controller{
		lib:      lib,
		eng:      engine.New(engOpts...),
		disp:     cues.NewDispatcher(dispOpts...),
		rec:      recorder.New(o.history, recOpts...),
		wake:     o.wake,
		rng:      o.rng,
		settings: settings,
	}
	c.disp.Attach(c.eng.Bus())
	c.rec.Attach(c.eng.Bus())
	c.sub = c.eng.Subscribe(engine.EventSessionEnded, func(engine.Event) { c.releaseWake() })
	return c
}

// Select resolves key in the library, compiles it with ov and loads the run
// list into the engine. Any session in progress is discarded without being
// recorded.
func (c *Controller) Select(key string, ov ir.Overrides) (library.Selection, error) {
	c.mu.Lock()
	var rng *rand.Rand
	if c.settings.Randomize {
		rng = c.rng
	}
	c.mu.Unlock()

	run, sel, err := c.lib.Compile(key, ov, rng)
	if err != nil {
		return library.Selection{}, err
	}

	c.mu.Lock()
	c.sel, c.selected, c.overrides = sel, true, ov
	c.mu.Unlock()

	c.releaseWake()
	c.rec.SetRoutine(sel.Label)
	c.eng.Load(run)
	slog.Info("routine selected", "key", key, "label", sel.Label, "steps", len(run), "total", ir.TotalDuration(run))
	return sel, nil
}

// SetOverrides recompiles the current selection with ov.
func (c *Controller) SetOverrides(ov ir.Overrides) error {
	c.mu.Lock()
	key, ok := c.sel.Key, c.selected
	c.mu.Unlock()
	if !ok {
		return ErrNoSelection
	}
	_, err := c.Select(key, ov)
	return err
}

// ApplySettings updates cue options, the halfway cue and the hold target.
// Turning KeepAwake off releases a held wake lock.
func (c *Controller) ApplySettings(s Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()

	c.disp.SetOptions(s.Cues)
	c.eng.SetHalfwayCue(s.Halfway)
	c.eng.SetHoldTarget(s.HoldTargetSec)
	if !s.KeepAwake {
		c.releaseWake()
	}
}

// Settings returns the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Start starts or resumes the session and takes the wake lock when
// KeepAwake is on. A wake lock failure is logged, not returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if !selected {
		return ErrNoSelection
	}
	if err := c.eng.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	c.acquireWake(ctx)
	return nil
}

// Pause suspends the session and releases the wake lock.
func (c *Controller) Pause() {
	c.eng.Pause()
	c.releaseWake()
}

// Toggle pauses a running session and starts or resumes otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.eng.Snapshot().Running {
		c.Pause()
		return nil
	}
	return c.Start(ctx)
}

// Next skips to the following step.
func (c *Controller) Next() { c.eng.Next() }

// Previous re-enters the preceding step.
func (c *Controller) Previous() { c.eng.Previous() }

// Reset returns to the first step without recording.
func (c *Controller) Reset() {
	c.eng.Reset()
	c.releaseWake()
}

// Stop ends the session and records it as stopped.
func (c *Controller) Stop() {
	c.eng.Stop()
	c.releaseWake()
}

// Run processes cue jobs until ctx is cancelled or the controller is closed.
func (c *Controller) Run(ctx context.Context) error {
	return c.disp.Run(ctx)
}

// DrainCues runs every queued cue job on the calling goroutine.
func (c *Controller) DrainCues(ctx context.Context) int {
	return c.disp.Drain(ctx)
}

// Close stops the engine, detaches every subscriber and releases owned
// resources. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	c.eng.Bus().Unsubscribe(sub)
	c.rec.Detach()
	c.disp.Detach()
	c.eng.Reset()
	c.disp.Close()
	c.releaseWake()
}

func (c *Controller) acquireWake(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wake == nil || c.wakeHeld || !c.settings.KeepAwake {
		return
	}
	if err := c.wake.Acquire(ctx); err != nil {
		slog.Warn("wake lock unavailable", "error", err)
		return
	}
	c.wakeHeld = true
	slog.Debug("wake lock acquired")
}

func (c *Controller) releaseWake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wake == nil || !c.wakeHeld {
		return
	}
	c.wakeHeld = false
	if err := c.wake.Release(); err != nil {
		slog.Warn("failed to release wake lock", "error", err)
		return
	}
	slog.Debug("wake lock released")
}
