package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Voice.Enabled)
	assert.Equal(t, 1.0, cfg.Voice.Rate)
	assert.True(t, cfg.Cues.BeepOnTransition)
	assert.True(t, cfg.Cues.AnnounceTurns)
	assert.False(t, cfg.Cues.Halfway)
	assert.Equal(t, 0, cfg.Session.HoldTargetSec)
	assert.False(t, cfg.Session.KeepAwake)
	assert.False(t, cfg.Session.Randomize)
	assert.False(t, cfg.Display.BigDigits)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "poser.db", filepath.Base(cfg.Paths.Database))

	assert.Empty(t, cfg.Validate())
}

func TestHoldTarget(t *testing.T) {
	s := SessionConfig{HoldTargetSec: 90}
	assert.Equal(t, 90*time.Second, s.HoldTarget())
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		assert.Equal(t, "/custom/config/poser", ConfigDir())
		assert.Equal(t, "/custom/config/poser/config.yaml", ConfigFile())
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".config", "poser"), ConfigDir())
	})
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/poser", DataDir())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Voice.Enabled)
	assert.Equal(t, 1.0, cfg.Voice.Rate)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
voice:
  enabled: false
  rate: 1.25
cues:
  halfway: true
session:
  hold_target_sec: 300
  keep_awake: true
paths:
  database: /tmp/poser-test.db
`), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, cfg.Voice.Enabled)
	assert.Equal(t, 1.25, cfg.Voice.Rate)
	assert.True(t, cfg.Cues.Halfway)
	assert.True(t, cfg.Cues.BeepOnTransition, "unset keys keep defaults")
	assert.Equal(t, 300, cfg.Session.HoldTargetSec)
	assert.True(t, cfg.Session.KeepAwake)
	assert.Equal(t, "/tmp/poser-test.db", cfg.Paths.Database)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("POSER_SESSION_RANDOMIZE", "true")
	t.Setenv("POSER_VOICE_RATE", "0.75")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Session.Randomize)
	assert.Equal(t, 0.75, cfg.Voice.Rate)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("voice:\n  rate: 9\nlogging:\n  level: loud\n"), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}
