package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/tui"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path

	overrides overrideFlags
}

// CompiledStep is one entry of a printed run list.
type CompiledStep struct {
	Index         int     `json:"index"`
	Pose          string  `json:"pose"`
	Label         string  `json:"label"`
	TransitionSec float64 `json:"transition_sec"`
	HoldSec       float64 `json:"hold_sec"`
	QuarterTurn   bool    `json:"quarter_turn,omitempty"`
	Rest          bool    `json:"rest,omitempty"`
}

// CompilationResult is a compiled routine or master.
type CompilationResult struct {
	Key       string         `json:"key"`
	Label     string         `json:"label"`
	Master    bool           `json:"master,omitempty"`
	Steps     []CompiledStep `json:"steps"`
	PoseCount int            `json:"pose_count"`
	TotalSec  float64        `json:"total_sec"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <routine>",
		Short: "Show the run list of a routine",
		Long: `Compile a routine or master into the run list a session walks through.

Overrides are applied the way run applies them: hold and transition
overrides replace every pose's value, repeat and rest replace the loop
settings. Masters expand every routine they reference.

Examples:
  poser compile classic_symmetry_loop
  poser compile classic_full_session --every-hold 15
  poser compile classic_muscularity --format json -o run.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the run list as JSON to this file")
	opts.overrides.register(cmd)

	return cmd
}

func runCompile(opts *CompileOptions, key string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	lib, err := opts.loadLibrary(cmd.Context(), st)
	if err != nil {
		return err
	}

	run, sel, err := lib.Compile(key, opts.overrides.overrides(cmd), nil)
	if err != nil {
		return unknownRoutine(f, err)
	}
	result := NewCompilationResult(lib, sel, run)
	f.VerboseLog("Compiled %s: %d steps", key, len(run))

	if opts.Output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return WrapExitError(ExitFailure, "failed to marshal run list", err)
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		f.VerboseLog("Wrote %s", opts.Output)
	}

	return f.Render(result, func(w io.Writer) {
		writeRunList(w, result)
	})
}

// NewCompilationResult describes run for display, labelling poses from lib.
func NewCompilationResult(lib *library.Library, sel library.Selection, run []ir.RunStep) CompilationResult {
	result := CompilationResult{
		Key:       sel.Key,
		Label:     sel.Label,
		Master:    sel.IsMaster(),
		Steps:     make([]CompiledStep, len(run)),
		PoseCount: ir.PoseCount(run),
		TotalSec:  ir.TotalDuration(run).Seconds(),
	}
	for i, step := range run {
		label := lib.Label(step.Pose)
		if step.IsRest() {
			label = "Rest"
		}
		result.Steps[i] = CompiledStep{
			Index:         i + 1,
			Pose:          string(step.Pose),
			Label:         label,
			TransitionSec: step.Transition.Seconds(),
			HoldSec:       step.Hold.Seconds(),
			QuarterTurn:   step.NeedsQuarterTurn,
			Rest:          step.IsRest(),
		}
	}
	return result
}

func writeRunList(w io.Writer, r CompilationResult) {
	fmt.Fprintf(w, "%s (%s)\n", r.Label, r.Key)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tPOSE\tTRANSITION\tHOLD\t")
	for _, s := range r.Steps {
		label := s.Label
		if s.QuarterTurn {
			label += " ↻"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t\n", s.Index, label, formatSeconds(s.TransitionSec), formatSeconds(s.HoldSec))
	}
	tw.Flush()

	total := time.Duration(r.TotalSec * float64(time.Second))
	fmt.Fprintf(w, "%d poses · %d steps · %s\n", r.PoseCount, len(r.Steps), tui.FormatClock(total))
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64) + "s"
}
