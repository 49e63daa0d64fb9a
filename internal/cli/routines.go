package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/tui"
)

// RoutineSummary is one row of the routines listing.
type RoutineSummary struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Kind      string  `json:"kind"` // "routine", "master" or "playlist"
	PoseCount int     `json:"pose_count"`
	TotalSec  float64 `json:"total_sec"`
	Error     string  `json:"error,omitempty"`
}

// NewRoutinesCommand creates the routines command.
func NewRoutinesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routines",
		Short: "List routines, masters and playlists",
		Long: `List every routine and master that run and compile accept, with the
number of poses and the length of a session at default settings.

Saved playlists appear with the custom_ prefix.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutines(rootOpts, cmd)
		},
	}
}

func runRoutines(opts *RootOptions, cmd *cobra.Command) error {
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

	rows := summarizeRoutines(lib)
	return f.Render(rows, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tLABEL\tKIND\tPOSES\tLENGTH\t")
		for _, r := range rows {
			length := tui.FormatClock(time.Duration(r.TotalSec * float64(time.Second)))
			if r.Error != "" {
				length = "invalid"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\n", r.Key, r.Label, r.Kind, r.PoseCount, length)
		}
		tw.Flush()
	})
}

func summarizeRoutines(lib *library.Library) []RoutineSummary {
	var rows []RoutineSummary
	add := func(key, label, kind string) {
		row := RoutineSummary{Key: key, Label: label, Kind: kind}
		run, _, err := lib.Compile(key, ir.Overrides{}, nil)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.PoseCount = ir.PoseCount(run)
			row.TotalSec = ir.TotalDuration(run).Seconds()
		}
		rows = append(rows, row)
	}

	for _, r := range lib.Routines() {
		kind := "routine"
		if strings.HasPrefix(r.ID, library.PlaylistPrefix) {
			kind = "playlist"
		}
		add(r.ID, r.Label, kind)
	}
	for _, m := range lib.Masters() {
		add(m.ID, m.Label, "master")
	}
	return rows
}
