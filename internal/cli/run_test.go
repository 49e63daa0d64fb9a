package cli

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/cues"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/session"
	"github.com/roach88/poser/internal/testutil"
)

// driveScheduler ticks s as fast as it will go until the test ends.
func driveScheduler(t *testing.T, s *testutil.ManualScheduler) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if s.Advance(100) == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}()
	t.Cleanup(func() { close(done) })
}

func newTestRun(t *testing.T, format string) (*RunOptions, *RootOptions) {
	t.Helper()
	root := testOptions(t, format)
	sched := testutil.NewManualScheduler()
	driveScheduler(t, sched)
	return &RunOptions{
		RootOptions: root,
		Scheduler:   sched,
		Backends:    []session.Option{session.WithCueBackends()},
	}, root
}

func TestRunPlain(t *testing.T) {
	opts, root := newTestRun(t, "text")

	out, _, err := execute(newRunCommand(opts), "tiny", "--plain")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "[0:00] 1/2 Alpha", lines[0])
	assert.Contains(t, out, "2/2 Bravo")
	assert.Contains(t, out, "countdown")
	assert.Contains(t, out, "Session complete")
	assert.Equal(t, "Tension 0:02 · Total 0:02 · 2 poses", lines[len(lines)-1])

	out, _, err = execute(NewHistoryCommand(root), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Tiny")
	assert.Contains(t, out, "Session complete")
}

// slowSpeaker takes a moment per utterance and records only the ones that
// were not cut short.
type slowSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *slowSpeaker) Speak(ctx context.Context, text string) error {
	time.Sleep(5 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

func (s *slowSpeaker) Cancel() {}

func (s *slowSpeaker) Said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

func TestRunPlainSpeaksClosingAnnouncement(t *testing.T) {
	opts, root := newTestRun(t, "text")
	root.cfg.Voice.Enabled = true
	speaker := &slowSpeaker{}
	opts.Backends = []session.Option{session.WithCueBackends(cues.WithSpeaker(speaker))}

	_, _, err := execute(newRunCommand(opts), "tiny", "--plain")
	require.NoError(t, err)

	said := speaker.Said()
	require.NotEmpty(t, said)
	assert.Equal(t, ir.ReasonComplete.Spoken(), said[len(said)-1])
}

func TestRunPlainQuarterTurns(t *testing.T) {
	opts, _ := newTestRun(t, "text")

	out, _, err := execute(newRunCommand(opts), "looped", "--plain", "--repeat", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 Bravo (quarter turn)")
	assert.NotContains(t, out, "1/2 Alpha (quarter turn)")
}

func TestRunJSONHoldTarget(t *testing.T) {
	opts, _ := newTestRun(t, "json")

	out, _, err := execute(newRunCommand(opts), "looped", "--hold-target", "3")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ir.SessionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.ReasonTargetReached, resp.Data.Reason)
	assert.Equal(t, 3, resp.Data.TensionSec)
	assert.Equal(t, "Looped", resp.Data.Routine)
}

func TestRunUnknownRoutine(t *testing.T) {
	opts, _ := newTestRun(t, "text")

	_, _, err := execute(newRunCommand(opts), "no_such_routine", "--plain")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunSettingsFlags(t *testing.T) {
	opts := &RunOptions{RootOptions: testOptions(t, "text")}
	cmd := newRunCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--hold-target", "90", "--shuffle", "--mute"}))

	cfg, err := opts.Config()
	require.NoError(t, err)
	cfg.Voice.Enabled = true
	s := opts.settings(cmd, cfg)

	assert.Equal(t, 90, s.HoldTargetSec)
	assert.True(t, s.Randomize)
	assert.False(t, s.Cues.Voice)
	assert.False(t, s.Cues.HalfwayVoice)
}

func TestRunSettingsDefaults(t *testing.T) {
	opts := &RunOptions{RootOptions: testOptions(t, "text")}
	cmd := newRunCommand(opts)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := opts.Config()
	require.NoError(t, err)
	cfg.Session.HoldTargetSec = 45
	s := opts.settings(cmd, cfg)

	assert.Equal(t, 45, s.HoldTargetSec)
	assert.False(t, s.Randomize)
}
