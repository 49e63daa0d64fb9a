package session

import (
	"github.com/roach88/poser/internal/config"
	"github.com/roach88/poser/internal/cues"
)

// Settings are the user preferences that shape a session.
type Settings struct {
	Cues          cues.Options
	Halfway       bool
	HoldTargetSec int
	KeepAwake     bool
	Randomize     bool
}

// DefaultSettings matches config.Default.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig maps the persisted configuration onto session settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Cues: cues.Options{
			Voice:            cfg.Voice.Enabled,
			BeepOnTransition: cfg.Cues.BeepOnTransition,
			AnnounceTurns:    cfg.Cues.AnnounceTurns,
			HalfwayVoice:     cfg.Voice.Enabled,
			Haptics:          cfg.Cues.Haptics,
		},
		Halfway:       cfg.Cues.Halfway,
		HoldTargetSec: cfg.Session.HoldTargetSec,
		KeepAwake:     cfg.Session.KeepAwake,
		Randomize:     cfg.Session.Randomize,
	}
}
