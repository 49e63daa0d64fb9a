package session

import (
	"io"
	"log/slog"

	"github.com/roach88/poser/internal/config"
	"github.com/roach88/poser/internal/cues"
)

// SystemBackends returns controller options wiring the speech, tone and
// wake-lock backends available on this machine. Missing backends are
// logged and left out; the session still runs without them.
func SystemBackends(cfg *config.Config, bell io.Writer) []Option {
	dispatch := []cues.DispatcherOption{
		cues.WithToner(cues.NewBellToner(bell, cfg.Cues.SoundPath)),
	}

	if cfg.Voice.Enabled {
		sp, err := cues.NewExecSpeaker(cfg.Voice.Rate)
		if err != nil {
			slog.Warn("voice cues disabled", "error", err)
		} else {
			slog.Debug("speech backend", "path", sp.Path())
			dispatch = append(dispatch, cues.WithSpeaker(sp))
		}
	}

	opts := []Option{WithCueBackends(dispatch...)}
	if cfg.Session.KeepAwake {
		wl, err := cues.NewExecWakeLock()
		if err != nil {
			slog.Warn("keep awake unavailable", "error", err)
		} else {
			opts = append(opts, WithWakeLock(wl))
		}
	}
	return opts
}
