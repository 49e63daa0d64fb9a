package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/config"
	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/session"
	"github.com/roach88/poser/internal/tui"
)

// DefaultRoutine is run when no routine is named.
const DefaultRoutine = "classic_symmetry_loop"

// cueDrainTimeout bounds how long a finished run waits for queued cues,
// such as the closing announcement, to play.
const cueDrainTimeout = 10 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Plain      bool
	HoldTarget int
	Shuffle    bool
	Mute       bool
	BigDigits  bool

	overrides overrideFlags

	// Scheduler replaces the wall-clock tick source (for testing).
	Scheduler engine.Scheduler

	// Backends replaces the speech, tone and wake-lock backends found on
	// this machine (for testing).
	Backends []session.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [routine]",
		Short: "Run a practice session",
		Long: `Run a posing practice session.

The routine (or master) is compiled with any overrides and played on the
session screen: space starts and pauses, n and p move between poses,
s stops and r resets. Finished and stopped sessions are saved to history.

With --plain, or with --format json, no screen is drawn: events are
printed as they happen and the session record is printed at the end.

Examples:
  poser run
  poser run classic_muscularity --every-hold 20 --repeat 3
  poser run classic_symmetry_loop --hold-target 120
  poser run custom_morning --plain --mute`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := DefaultRoutine
			if len(args) == 1 {
				key = args[0]
			}
			return runSession(opts, key, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "print events instead of drawing the session screen")
	cmd.Flags().IntVar(&opts.HoldTarget, "hold-target", 0, "end the session after this many seconds of holds (0 disables)")
	cmd.Flags().BoolVar(&opts.Shuffle, "shuffle", false, "shuffle routines that allow it")
	cmd.Flags().BoolVar(&opts.Mute, "mute", false, "disable spoken cues")
	cmd.Flags().BoolVar(&opts.BigDigits, "big", false, "draw the clock in large digits")
	opts.overrides.register(cmd)

	return cmd
}

func runSession(opts *RunOptions, key string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lib, err := opts.loadLibrary(ctx, st)
	if err != nil {
		return err
	}

	settings := opts.settings(cmd, cfg)
	ctrlOpts := []session.Option{session.WithHistory(st)}
	if opts.Backends != nil {
		ctrlOpts = append(ctrlOpts, opts.Backends...)
	} else {
		ctrlOpts = append(ctrlOpts, session.SystemBackends(cfg, cmd.ErrOrStderr())...)
	}
	if opts.Scheduler != nil {
		ctrlOpts = append(ctrlOpts, session.WithScheduler(opts.Scheduler))
	}

	ctrl := session.New(lib, settings, ctrlOpts...)
	defer ctrl.Close()

	sel, err := ctrl.Select(key, opts.overrides.overrides(cmd))
	if err != nil {
		return unknownRoutine(f, err)
	}
	slog.Info("session ready", "routine", sel.Key, "steps", len(ctrl.RunList()),
		"duration", ctrl.Remaining().String())

	cueErr := make(chan error, 1)
	go func() { cueErr <- ctrl.Run(ctx) }()
	defer func() {
		if ctx.Err() == nil {
			// Closing lets the worker play what is queued and then return.
			ctrl.Close()
			select {
			case err := <-cueErr:
				cancel()
				logCueWorker(err)
				return
			case <-time.After(cueDrainTimeout):
				slog.Debug("cue drain timed out")
			}
		}
		cancel()
		logCueWorker(<-cueErr)
	}()

	if opts.Plain || f.JSON() {
		return runPlain(ctx, ctrl, f)
	}
	return runScreen(ctx, ctrl, opts.BigDigits || cfg.Display.BigDigits, cmd)
}

func logCueWorker(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("cue worker stopped", "error", err)
	}
}

// settings applies the command-line switches over the configured settings.
func (o *RunOptions) settings(cmd *cobra.Command, cfg *config.Config) session.Settings {
	s := session.SettingsFromConfig(cfg)
	if cmd.Flags().Changed("hold-target") {
		s.HoldTargetSec = max(o.HoldTarget, 0)
	}
	if o.Shuffle {
		s.Randomize = true
	}
	if o.Mute {
		s.Cues.Voice = false
		s.Cues.HalfwayVoice = false
	}
	return s
}

// runPlain starts the session and prints its events until it ends or ctx is
// cancelled, which stops it.
func runPlain(ctx context.Context, ctrl *session.Controller, f *OutputFormatter) error {
	ended := make(chan struct{})
	var once sync.Once
	id := ctrl.SubscribeAll(func(ev engine.Event) {
		if !f.JSON() {
			printEvent(f.Writer, ctrl, ev)
		}
		if ev.Type == engine.EventSessionEnded {
			once.Do(func() { close(ended) })
		}
	})
	defer ctrl.Unsubscribe(id)

	if err := ctrl.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start session", err)
	}

	select {
	case <-ended:
	case <-ctx.Done():
		slog.Info("interrupted, stopping session")
		ctrl.Stop()
		<-ended
	}

	rec, ok := ctrl.LastRecord()
	if !ok {
		return nil
	}
	return f.Render(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Tension %s · Total %s · %d poses\n",
			tui.FormatClock(secs(rec.TensionSec)), tui.FormatClock(secs(rec.TotalSec)), rec.PosesCompleted)
	})
}

// printEvent writes one line per step, phase and halfway event.
func printEvent(w io.Writer, ctrl *session.Controller, ev engine.Event) {
	stamp := tui.FormatClock(ev.State.CumulativeHold + ev.State.CumulativeTransition)
	switch ev.Type {
	case engine.EventStepStarted:
		line := fmt.Sprintf("[%s] %d/%d %s", stamp, ev.StepIndex+1, ev.State.StepCount, ctrl.PoseFor(ev.Step.Pose).Label)
		if ev.Step.NeedsQuarterTurn {
			line += " (quarter turn)"
		}
		fmt.Fprintln(w, line)
	case engine.EventPhaseChanged:
		switch ev.To {
		case ir.PhaseCountdown:
			fmt.Fprintf(w, "[%s]   countdown\n", stamp)
		case ir.PhaseHold:
			fmt.Fprintf(w, "[%s]   hold %s\n", stamp, tui.FormatClock(ev.Step.Hold))
		}
	case engine.EventHalfwayReached:
		fmt.Fprintf(w, "[%s]   halfway\n", stamp)
	case engine.EventSessionEnded:
		fmt.Fprintf(w, "[%s] %s\n", stamp, ev.Reason.Message())
	}
}

// runScreen draws the session screen until the user quits. Logs go to a
// file in the data directory while the screen owns the terminal.
func runScreen(ctx context.Context, ctrl *session.Controller, bigDigits bool, cmd *cobra.Command) error {
	logFile, err := openLogFile()
	if err == nil {
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))
		defer func() {
			slog.SetDefault(prev)
			logFile.Close()
		}()
	}

	model := tui.New(ctx, ctrl, tui.WithBigDigits(bigDigits))
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return WrapExitError(ExitFailure, "session screen failed", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return WrapExitError(ExitFailure, "session error", m.Err())
	}

	if rec, ok := ctrl.LastRecord(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s · Tension %s · Total %s\n",
			rec.Reason.Message(), tui.FormatClock(secs(rec.TensionSec)), tui.FormatClock(secs(rec.TotalSec)))
	}
	return nil
}

func openLogFile() (*os.File, error) {
	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "poser.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
