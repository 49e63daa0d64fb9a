package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/export"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/queryir"
	"github.com/roach88/poser/internal/tui"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, export and clear session history",
		Long: fmt.Sprintf(`Every completed, stopped or target-reached session is recorded with its
tension time (total hold), total time and the number of poses reached.
The newest %d sessions are kept.`, ir.HistoryCap),
	}

	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryExportCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))
	return cmd
}

// historyFilter holds the history list filter flags.
type historyFilter struct {
	routine    string
	reason     string
	since      string
	until      string
	minTension int
}

func (h *historyFilter) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.routine, "routine", "", "only sessions of this routine label")
	cmd.Flags().StringVar(&h.reason, "reason", "", "only sessions that ended this way: complete, target_reached or stopped")
	cmd.Flags().StringVar(&h.since, "since", "", "only sessions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&h.until, "until", "", "only sessions before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&h.minTension, "min-tension", 0, "only sessions with at least this many seconds of holds")
}

// predicate converts the flags into a session filter. Dates are local.
func (h *historyFilter) predicate(cmd *cobra.Command) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	if h.routine != "" {
		preds = append(preds, queryir.Equals{Field: queryir.FieldRoutine, Value: h.routine})
	}
	if h.reason != "" {
		preds = append(preds, queryir.Equals{Field: queryir.FieldReason, Value: h.reason})
	}
	if h.since != "" {
		t, err := time.ParseInLocation(time.DateOnly, h.since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("--since: %w", err)
		}
		preds = append(preds, queryir.Since{Time: t})
	}
	if h.until != "" {
		t, err := time.ParseInLocation(time.DateOnly, h.until, time.Local)
		if err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
		preds = append(preds, queryir.Before{Time: t})
	}
	if cmd.Flags().Changed("min-tension") {
		preds = append(preds, queryir.AtLeast{Field: queryir.FieldTension, Value: h.minTension})
	}
	return queryir.All(preds...), nil
}

func newHistoryListCommand(opts *RootOptions) *cobra.Command {
	var (
		limit  int
		filter historyFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Example: `  poser history list -n 5
  poser history list --reason complete --since 2026-01-01
  poser history list --routine "Classic Symmetry Loop" --min-tension 60`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			pred, err := filter.predicate(cmd)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			q := queryir.Query{Filter: pred, Limit: limit}
			if err := queryir.Validate(q); err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			recs, err := st.QuerySessions(cmd.Context(), q)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read history", err)
			}
			return f.Render(recs, func(w io.Writer) {
				writeHistory(w, recs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to show (0 for all)")
	filter.register(cmd)
	return cmd
}

func writeHistory(w io.Writer, recs []ir.SessionRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tROUTINE\tTENSION\tTOTAL\tPOSES\tRESULT\t")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Routine,
			tui.FormatClock(secs(r.TensionSec)),
			tui.FormatClock(secs(r.TotalSec)),
			r.PosesCompleted,
			r.Reason.Message())
	}
	tw.Flush()
}

func newHistoryExportCommand(opts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as CSV",
		Long: `Write the whole history as CSV, newest first, with the columns
date_iso, tension_sec, total_sec and poses.`,
		Example:       "  poser history export -o history.csv",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			recs, err := st.ListSessions(cmd.Context(), 0)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read history", err)
			}

			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create output", err)
				}
				defer file.Close()
				w = file
			}
			if err := export.WriteHistoryCSV(w, recs); err != nil {
				return WrapExitError(ExitFailure, "failed to export history", err)
			}
			f.VerboseLog("Exported %d session(s)", len(recs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newHistoryClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Delete every recorded session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to clear history without --yes")
			}
			f := opts.formatter(cmd)
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			n, err := st.CountSessions(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read history", err)
			}
			if err := st.ClearSessions(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "failed to clear history", err)
			}
			return f.Render(map[string]int{"cleared": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Cleared %d session(s)\n", n)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting the history")
	return cmd
}
