package cues

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// Swapped in tests.
var (
	execLookPath = exec.LookPath
	goos         = runtime.GOOS
)

// defaultWPM is the speaking rate of say and espeak at rate 1.0.
const defaultWPM = 175

// ExecSpeaker speaks through the first speech binary found on PATH:
// say on macOS, spd-say or espeak elsewhere.
type ExecSpeaker struct {
	path string
	args func(text string) []string

	mu  sync.Mutex
	cur *exec.Cmd
}

// NewExecSpeaker locates a speech binary. Rate is a multiplier of the
// binary's normal speed (1.0 is normal). Returns ErrUnavailable when none
// is installed.
func NewExecSpeaker(rate float64) (*ExecSpeaker, error) {
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(defaultWPM * rate))

	candidates := []struct {
		name string
		args func(string) []string
	}{
		{"say", func(text string) []string { return []string{"-r", wpm, text} }},
		{"spd-say", func(text string) []string {
			return []string{"--wait", "-r", strconv.Itoa(spdRate(rate)), text}
		}},
		{"espeak", func(text string) []string { return []string{"-s", wpm, text} }},
	}
	if goos != "darwin" {
		candidates = candidates[1:]
	}

	for _, c := range candidates {
		if path, err := execLookPath(c.name); err == nil {
			return &ExecSpeaker{path: path, args: c.args}, nil
		}
	}
	return nil, fmt.Errorf("speech: %w", ErrUnavailable)
}

// spdRate maps a speed multiplier onto spd-say's -100..100 scale.
func spdRate(rate float64) int {
	r := int((rate - 1) * 100)
	return max(-100, min(100, r))
}

// Path returns the speech binary in use.
func (s *ExecSpeaker) Path() string {
	return s.path
}

// Speak blocks until the utterance finishes, is cancelled, or ctx ends.
// A new utterance interrupts the previous one.
func (s *ExecSpeaker) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.path, s.args(text)...)

	s.mu.Lock()
	s.killLocked()
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start %s: %w", s.path, err)
	}
	s.cur = cmd
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	if s.cur == cmd {
		s.cur = nil
	}
	s.mu.Unlock()
	return err
}

// Cancel stops the utterance in progress, if any.
func (s *ExecSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
}

func (s *ExecSpeaker) killLocked() {
	if s.cur != nil && s.cur.Process != nil {
		_ = s.cur.Process.Kill()
	}
	s.cur = nil
}

// BellToner rings the terminal bell. With a sound file configured on macOS it
// plays that file through afplay at the tone's gain instead.
type BellToner struct {
	out       io.Writer
	soundPath string
	player    string
}

// NewBellToner creates a toner writing the bell to out (os.Stderr if nil).
func NewBellToner(out io.Writer, soundPath string) *BellToner {
	if out == nil {
		out = os.Stderr
	}
	t := &BellToner{out: out, soundPath: soundPath}
	if soundPath != "" && goos == "darwin" {
		if path, err := execLookPath("afplay"); err == nil {
			t.player = path
		}
	}
	return t
}

// Tone plays t. The afplay process is not waited for beyond ctx.
func (t *BellToner) Tone(ctx context.Context, tone Tone) error {
	if t.player != "" {
		vol := strconv.FormatFloat(tone.Gain, 'f', 2, 64)
		cmd := exec.CommandContext(ctx, t.player, "-v", vol, "-t",
			strconv.FormatFloat(tone.Duration.Seconds(), 'f', 3, 64), t.soundPath)
		return cmd.Run()
	}
	_, err := io.WriteString(t.out, "\a")
	return err
}

// ExecWakeLock keeps the machine awake by holding a child process:
// caffeinate -d on macOS, systemd-inhibit elsewhere.
type ExecWakeLock struct {
	path string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecWakeLock locates the inhibitor binary for this OS.
func NewExecWakeLock() (*ExecWakeLock, error) {
	name, args := "systemd-inhibit", []string{
		"--what=idle:sleep", "--who=poser", "--why=posing session", "sleep", "infinity",
	}
	if goos == "darwin" {
		name, args = "caffeinate", []string{"-d"}
	}
	path, err := execLookPath(name)
	if err != nil {
		return nil, fmt.Errorf("wake lock: %w", ErrUnavailable)
	}
	return &ExecWakeLock{path: path, args: args}, nil
}

// Acquire starts the inhibitor unless it is already running.
func (w *ExecWakeLock) Acquire(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd != nil {
		return nil
	}
	// Not tied to ctx: the lock outlives the call that takes it.
	cmd := exec.Command(w.path, w.args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", w.path, err)
	}
	w.cmd = cmd
	slog.Debug("wake lock acquired", "pid", cmd.Process.Pid)
	return nil
}

// Release stops the inhibitor.
func (w *ExecWakeLock) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd == nil {
		return nil
	}
	cmd := w.cmd
	w.cmd = nil
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	_ = cmd.Wait()
	slog.Debug("wake lock released")
	return nil
}

// Held reports whether the inhibitor is running.
func (w *ExecWakeLock) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cmd != nil
}
