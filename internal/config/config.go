// Package config loads poser settings from a YAML file, the environment and
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. POSER_VOICE_ENABLED.
const EnvPrefix = "POSER"

// Config represents the complete poser configuration
type Config struct {
	Voice   VoiceConfig   `mapstructure:"voice"`
	Cues    CuesConfig    `mapstructure:"cues"`
	Session SessionConfig `mapstructure:"session"`
	Display DisplayConfig `mapstructure:"display"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// VoiceConfig controls spoken cues
type VoiceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Rate scales the speech engine's default speaking rate (0.5 - 2.0)
	Rate float64 `mapstructure:"rate"`
}

// CuesConfig controls tones, turn instructions and the halfway cue
type CuesConfig struct {
	BeepOnTransition bool `mapstructure:"beep_on_transition"`
	AnnounceTurns    bool `mapstructure:"announce_turns"`
	// Halfway enables the mid-hold cue for holds longer than four seconds
	Halfway bool `mapstructure:"halfway"`
	Haptics bool `mapstructure:"haptics"`
	// SoundPath is an optional sound file played instead of the terminal bell
	SoundPath string `mapstructure:"sound_path"`
}

// SessionConfig controls session behavior
type SessionConfig struct {
	// HoldTargetSec ends the session once this much hold time is accumulated (0 = disabled)
	HoldTargetSec int `mapstructure:"hold_target_sec"`
	// KeepAwake holds a wake lock while a session is running
	KeepAwake bool `mapstructure:"keep_awake"`
	// Randomize shuffles routines that allow it each time they are selected
	Randomize bool `mapstructure:"randomize"`
}

// DisplayConfig controls the session screen
type DisplayConfig struct {
	BigDigits bool `mapstructure:"big_digits"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the minimum level logged: debug, info, warn or error
	Level string `mapstructure:"level"`
}

// PathsConfig locates on-disk state
type PathsConfig struct {
	// Database is the SQLite file holding history, custom poses and playlists
	Database string `mapstructure:"database"`
	// Library is an optional directory of CUE pose and routine files
	Library string `mapstructure:"library"`
}

// HoldTarget returns the round hold target as a duration.
func (c *SessionConfig) HoldTarget() time.Duration {
	return time.Duration(c.HoldTargetSec) * time.Second
}

// Default returns a Config with the default settings.
func Default() *Config {
	return &Config{
		Voice: VoiceConfig{
			Enabled: true,
			Rate:    1.0,
		},
		Cues: CuesConfig{
			BeepOnTransition: true,
			AnnounceTurns:    true,
			Halfway:          false,
			Haptics:          false,
		},
		Session: SessionConfig{
			HoldTargetSec: 0,
			KeepAwake:     false,
			Randomize:     false,
		},
		Display: DisplayConfig{
			BigDigits: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Paths: PathsConfig{
			Database: filepath.Join(DataDir(), "poser.db"),
		},
	}
}

// SetDefaults registers every default value with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("voice.enabled", defaults.Voice.Enabled)
	v.SetDefault("voice.rate", defaults.Voice.Rate)

	v.SetDefault("cues.beep_on_transition", defaults.Cues.BeepOnTransition)
	v.SetDefault("cues.announce_turns", defaults.Cues.AnnounceTurns)
	v.SetDefault("cues.halfway", defaults.Cues.Halfway)
	v.SetDefault("cues.haptics", defaults.Cues.Haptics)
	v.SetDefault("cues.sound_path", defaults.Cues.SoundPath)

	v.SetDefault("session.hold_target_sec", defaults.Session.HoldTargetSec)
	v.SetDefault("session.keep_awake", defaults.Session.KeepAwake)
	v.SetDefault("session.randomize", defaults.Session.Randomize)

	v.SetDefault("display.big_digits", defaults.Display.BigDigits)

	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetDefault("paths.database", defaults.Paths.Database)
	v.SetDefault("paths.library", defaults.Paths.Library)
}

// NewViper returns a viper instance with defaults and environment overrides
// registered. When file is empty the config file is looked up in ConfigDir;
// a missing file is not an error.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "poser")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".poser"
	}
	return filepath.Join(home, ".config", "poser")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory holding the database
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "poser")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".poser"
	}
	return filepath.Join(home, ".local", "share", "poser")
}
