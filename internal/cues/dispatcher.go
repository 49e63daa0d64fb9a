package cues

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
)

// Spoken phrases.
const (
	TurnInstruction = "Quarter turn to the right. "
	RestPhrase      = "Rest between loops"
	HalfwayPhrase   = "Halfway"
)

// countdownOffsets are the tone times after Countdown entry; the last tone
// is higher and longer.
var countdownOffsets = []time.Duration{0, time.Second, 2 * time.Second}

// Options selects which cues are produced.
type Options struct {
	Voice            bool
	BeepOnTransition bool
	AnnounceTurns    bool
	HalfwayVoice     bool
	Haptics          bool
}

// DefaultOptions mirrors the default settings.
func DefaultOptions() Options {
	return Options{
		Voice:            true,
		BeepOnTransition: true,
		AnnounceTurns:    true,
		HalfwayVoice:     true,
		Haptics:          true,
	}
}

// Labeler resolves the spoken label of a pose.
type Labeler interface {
	SpokenLabel(ref ir.PoseRef) string
}

// LabelFunc adapts a function to Labeler.
type LabelFunc func(ir.PoseRef) string

// SpokenLabel calls f.
func (f LabelFunc) SpokenLabel(ref ir.PoseRef) string { return f(ref) }

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSpeaker sets the speech backend.
func WithSpeaker(s Speaker) DispatcherOption {
	return func(d *Dispatcher) { d.speaker = s }
}

// WithToner sets the tone backend.
func WithToner(t Toner) DispatcherOption {
	return func(d *Dispatcher) { d.toner = t }
}

// WithHaptic sets the haptic backend.
func WithHaptic(h Haptic) DispatcherOption {
	return func(d *Dispatcher) { d.haptic = h }
}

// WithLabeler sets the pose label resolver.
func WithLabeler(l Labeler) DispatcherOption {
	return func(d *Dispatcher) { d.labels = l }
}

// WithTimers sets the countdown timer source.
func WithTimers(t Timers) DispatcherOption {
	return func(d *Dispatcher) { d.timers = t }
}

// WithOptions sets the cue options.
func WithOptions(o Options) DispatcherOption {
	return func(d *Dispatcher) { d.opts = o }
}

// Dispatcher converts engine events into cue jobs.
type Dispatcher struct {
	speaker Speaker
	toner   Toner
	haptic  Haptic
	labels  Labeler
	timers  Timers

	// Speech is serialized apart from tones and haptics.
	effects *jobQueue
	speech  *jobQueue

	mu      sync.Mutex
	opts    Options
	gen     uint64
	pending []func() bool
	// played marks the countdown tones of the current countdown that have
	// sounded, so a resume schedules only the rest.
	played []bool
	bus     *engine.Bus
	subs    []string
}

// NewDispatcher creates a dispatcher. Without options every backend is
// absent and events produce no side effects.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		opts:    DefaultOptions(),
		labels:  LabelFunc(func(ref ir.PoseRef) string { return string(ref) }),
		timers:  RealTimers{},
		effects: newJobQueue(),
		speech:  newJobQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetOptions replaces the cue options. Jobs already queued keep the options
// they were created with.
func (d *Dispatcher) SetOptions(o Options) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = o
}

// Options returns the current cue options.
func (d *Dispatcher) Options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// Attach subscribes the dispatcher to bus. A second Attach detaches first.
func (d *Dispatcher) Attach(bus *engine.Bus) {
	d.Detach()

	subs := []string{
		bus.Subscribe(engine.EventStepStarted, d.onStepStarted),
		bus.Subscribe(engine.EventPhaseChanged, d.onPhaseChanged),
		bus.Subscribe(engine.EventHalfwayReached, d.onHalfway),
		bus.Subscribe(engine.EventSessionEnded, d.onSessionEnded),
		bus.Subscribe(engine.EventPaused, d.onPaused),
		bus.Subscribe(engine.EventResumed, d.onResumed),
	}

	d.mu.Lock()
	d.bus = bus
	d.subs = subs
	d.mu.Unlock()
}

// Detach removes the dispatcher's subscriptions.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	bus, subs := d.bus, d.subs
	d.bus, d.subs = nil, nil
	d.mu.Unlock()

	for _, id := range subs {
		bus.Unsubscribe(id)
	}
}

// Cancel discards every queued and scheduled cue and interrupts speech.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
	d.interrupt()
}

func (d *Dispatcher) cancelLocked() {
	d.gen++
	for _, stop := range d.pending {
		stop()
	}
	d.pending = nil
	d.played = nil
	if n := d.effects.Clear() + d.speech.Clear(); n > 0 {
		slog.Debug("discarded pending cues", "count", n)
	}
}

// interrupt stops any utterance in progress. Must not hold d.mu.
func (d *Dispatcher) interrupt() {
	if d.speaker != nil {
		d.speaker.Cancel()
	}
}

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return d.effects.Len() + d.speech.Len()
}

// Run drains both queues until ctx is done or Close is called.
func (d *Dispatcher) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.work(ctx, d.speech)
	}()
	err := d.work(ctx, d.effects)
	<-done
	return err
}

func (d *Dispatcher) work(ctx context.Context, q *jobQueue) error {
	for {
		d.drain(ctx, q)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.Wait():
			if q.Closed() && q.Len() == 0 {
				return nil
			}
		}
	}
}

// Drain runs every queued job on the calling goroutine, tones and haptics
// before speech, and returns how many ran. Jobs from a cancelled generation
// are skipped.
func (d *Dispatcher) Drain(ctx context.Context) int {
	return d.drain(ctx, d.effects) + d.drain(ctx, d.speech)
}

func (d *Dispatcher) drain(ctx context.Context, q *jobQueue) int {
	ran := 0
	for {
		if ctx.Err() != nil {
			return ran
		}
		j, ok := q.TryDequeue()
		if !ok {
			return ran
		}
		if j.gen != d.generation() {
			continue
		}
		if err := j.run(ctx); err != nil {
			slog.Debug("cue failed", "cue", j.name, "error", err)
		}
		ran++
	}
}

// Close detaches from the bus, cancels scheduled timers and lets Run return
// once the queues are empty.
func (d *Dispatcher) Close() {
	d.Detach()
	d.mu.Lock()
	for _, stop := range d.pending {
		stop()
	}
	d.pending = nil
	d.mu.Unlock()
	d.effects.Close()
	d.speech.Close()
}

func (d *Dispatcher) generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

func (d *Dispatcher) onStepStarted(ev engine.Event) {
	d.interrupt()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()

	if ev.Step.IsRest() {
		if d.opts.Voice {
			d.speakLocked(RestPhrase)
		}
		if d.opts.BeepOnTransition {
			d.toneLocked(TransitionTone)
		}
		return
	}

	text := d.labels.SpokenLabel(ev.Step.Pose)
	if ev.Step.NeedsQuarterTurn && d.opts.AnnounceTurns {
		text = TurnInstruction + text
	}
	if d.opts.Voice {
		d.speakLocked(text)
	}
	if d.opts.BeepOnTransition {
		d.toneLocked(TransitionTone)
		if d.opts.Haptics {
			d.vibrateLocked(TransitionPulse)
		}
	}
}

func (d *Dispatcher) onPhaseChanged(ev engine.Event) {
	switch ev.To {
	case ir.PhaseCountdown:
		d.scheduleCountdown()
	case ir.PhaseIdle, ir.PhaseStopped:
		d.Cancel()
	}
}

func (d *Dispatcher) scheduleCountdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.played = make([]bool, len(countdownOffsets))
	d.scheduleCountdownLocked(0)
}

// scheduleCountdownLocked arms a timer for every countdown tone not yet
// played, elapsed into the countdown.
func (d *Dispatcher) scheduleCountdownLocked(elapsed time.Duration) {
	gen, played := d.gen, d.played
	for i, offset := range countdownOffsets {
		if played[i] {
			continue
		}
		tone := CountdownTone
		if i == len(countdownOffsets)-1 {
			tone = FinalTone
		}
		stop := d.timers.AfterFunc(max(offset-elapsed, 0), func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if d.gen != gen || played[i] {
				return
			}
			played[i] = true
			d.toneLocked(tone)
		})
		d.pending = append(d.pending, stop)
	}
}

// onPaused holds back countdown tones until the clock resumes.
func (d *Dispatcher) onPaused(engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, stop := range d.pending {
		stop()
	}
	d.pending = nil
}

func (d *Dispatcher) onResumed(ev engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ev.State.Phase != ir.PhaseCountdown || d.played == nil {
		return
	}
	d.scheduleCountdownLocked(ev.State.Elapsed)
}

func (d *Dispatcher) onHalfway(engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.toneLocked(HalfwayTone)
	if d.opts.Voice && d.opts.HalfwayVoice {
		d.speakLocked(HalfwayPhrase)
	}
}

func (d *Dispatcher) onSessionEnded(ev engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The PhaseChanged(Stopped) before this event already cancelled the
	// previous step's cues.
	if d.opts.Voice {
		d.speakLocked(ev.Reason.Spoken())
	}
}

func (d *Dispatcher) speakLocked(text string) {
	if d.speaker == nil {
		return
	}
	d.speech.Enqueue(job{gen: d.gen, name: "speak", run: func(ctx context.Context) error {
		return d.speaker.Speak(ctx, text)
	}})
}

func (d *Dispatcher) toneLocked(t Tone) {
	if d.toner == nil {
		return
	}
	d.enqueueLocked("tone", func(ctx context.Context) error {
		return d.toner.Tone(ctx, t)
	})
}

func (d *Dispatcher) vibrateLocked(p time.Duration) {
	if d.haptic == nil {
		return
	}
	d.enqueueLocked("vibrate", func(ctx context.Context) error {
		return d.haptic.Vibrate(ctx, p)
	})
}

func (d *Dispatcher) enqueueLocked(name string, run func(context.Context) error) {
	d.effects.Enqueue(job{gen: d.gen, name: name, run: run})
}
