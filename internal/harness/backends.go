package harness

import (
	"context"
	"math"
	"time"

	"github.com/roach88/poser/internal/cues"
)

// cueRecorder is the speech, tone and haptic backend of a drill. Each cue the
// dispatcher delivers becomes a trace entry stamped with the drill's virtual
// time.
type cueRecorder struct {
	h *Harness
}

var (
	_ cues.Speaker = cueRecorder{}
	_ cues.Toner   = cueRecorder{}
	_ cues.Haptic  = cueRecorder{}
)

func (r cueRecorder) Speak(_ context.Context, text string) error {
	r.h.record(TraceEvent{Kind: KindCue, Cue: CueSpeak, Text: text})
	return nil
}

// Cancel is a no-op: recorded utterances complete instantly.
func (cueRecorder) Cancel() {}

func (r cueRecorder) Tone(_ context.Context, t cues.Tone) error {
	r.h.record(TraceEvent{Kind: KindCue, Cue: CueTone, Hz: int(math.Round(t.Frequency))})
	return nil
}

func (r cueRecorder) Vibrate(_ context.Context, d time.Duration) error {
	r.h.record(TraceEvent{Kind: KindCue, Cue: CueVibrate, MS: int(d / time.Millisecond)})
	return nil
}
