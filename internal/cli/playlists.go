package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/compiler"
	"github.com/roach88/poser/internal/export"
	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/share"
	"github.com/roach88/poser/internal/store"
	"github.com/roach88/poser/internal/tui"
)

// NewPlaylistsCommand creates the playlists command group.
func NewPlaylistsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlists",
		Aliases: []string{"playlist"},
		Short:   "Save, import and export playlists",
		Long: `Playlists are routines saved in the local database. A playlist named
"morning" runs as custom_morning.

Playlists move between machines as a JSON array or a YAML sequence of
documents with name, repeatCount, loopRestSec and items of poseId,
transitionSec and holdSec.`,
	}

	cmd.AddCommand(newPlaylistsListCommand(rootOpts))
	cmd.AddCommand(newPlaylistsSaveCommand(rootOpts))
	cmd.AddCommand(newPlaylistsRemoveCommand(rootOpts))
	cmd.AddCommand(newPlaylistsExportCommand(rootOpts))
	cmd.AddCommand(newPlaylistsImportCommand(rootOpts))
	return cmd
}

// PlaylistSummary is one row of the playlists listing.
type PlaylistSummary struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Items     int       `json:"items"`
	Repeat    int       `json:"repeat"`
	TotalSec  float64   `json:"total_sec"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPlaylistsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved playlists",
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

			playlists, err := st.ListPlaylists(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read playlists", err)
			}
			rows := make([]PlaylistSummary, 0, len(playlists))
			for _, p := range playlists {
				row := PlaylistSummary{
					Name:      p.Name,
					Key:       library.PlaylistPrefix + p.Name,
					Items:     len(p.Routine.Items),
					Repeat:    p.Routine.RepeatCount,
					UpdatedAt: p.UpdatedAt,
				}
				if run, err := compiler.Compile(p.Routine, ir.Overrides{}); err == nil {
					row.TotalSec = ir.TotalDuration(run).Seconds()
				}
				rows = append(rows, row)
			}

			return f.Render(rows, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintln(w, "No playlists saved.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tKEY\tPOSES\tLOOPS\tLENGTH\t")
				for _, r := range rows {
					length := tui.FormatClock(time.Duration(r.TotalSec * float64(time.Second)))
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t\n", r.Name, r.Key, r.Items, r.Repeat, length)
				}
				tw.Flush()
			})
		},
	}
}

func newPlaylistsSaveCommand(opts *RootOptions) *cobra.Command {
	var flags overrideFlags
	cmd := &cobra.Command{
		Use:   "save <name> <routine>",
		Short: "Save a routine as a playlist",
		Long: `Save a copy of a routine as a playlist. Overrides are baked into the
copy: every pose gets the overridden hold and transition.`,
		Example:       "  poser playlists save morning classic_symmetry_loop --every-hold 15 --repeat 1",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			name := strings.TrimSpace(args[0])
			if name == "" {
				return NewExitError(ExitCommandError, "playlist name is required")
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			lib, err := opts.loadLibrary(cmd.Context(), st)
			if err != nil {
				return err
			}
			sel, err := lib.Resolve(args[1])
			if err != nil {
				return unknownRoutine(f, err)
			}
			if sel.IsMaster() {
				return NewExitError(ExitCommandError, fmt.Sprintf("%q is a master; only routines can be saved", sel.Key))
			}

			r := share.NewPayload(*sel.Routine, flags.overrides(cmd)).Routine()
			r.ID = library.PlaylistPrefix + name
			if errs := compiler.Validate(&r, lib.Catalog()); len(errs) > 0 {
				return invalidDefinitions(f, errs)
			}
			if err := st.SavePlaylist(cmd.Context(), name, r); err != nil {
				return WrapExitError(ExitFailure, "failed to save playlist", err)
			}
			return f.Render(export.NewPlaylistDoc(name, r), func(w io.Writer) {
				fmt.Fprintf(w, "Saved %s (run as %s%s)\n", name, library.PlaylistPrefix, name)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newPlaylistsRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <name>",
		Aliases:       []string{"remove"},
		Short:         "Remove a playlist",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			if err := st.DeletePlaylist(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					if f.JSON() {
						_ = f.Error(CodeNotFound, err.Error(), nil)
					}
					return WrapExitError(ExitCommandError, "failed to remove playlist", err)
				}
				return WrapExitError(ExitFailure, "failed to remove playlist", err)
			}
			return f.Render(map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %s\n", args[0])
			})
		},
	}
}

func newPlaylistsExportCommand(opts *RootOptions) *cobra.Command {
	var output, as string
	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Export every playlist",
		Example:       "  poser playlists export -o playlists.yaml\n  poser playlists export --as json",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			format, err := playlistFormat(as, output)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid format", err)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			playlists, err := st.ListPlaylists(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read playlists", err)
			}
			docs := make([]export.PlaylistDoc, 0, len(playlists))
			for _, p := range playlists {
				docs = append(docs, export.NewPlaylistDoc(p.Name, p.Routine))
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
			if err := export.WritePlaylists(w, docs, format); err != nil {
				return WrapExitError(ExitFailure, "failed to export playlists", err)
			}
			f.VerboseLog("Exported %d playlist(s)", len(docs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&as, "as", "", "document format: json or yaml (default from the file extension, else json)")
	return cmd
}

func newPlaylistsImportCommand(opts *RootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import playlists from a file",
		Long: `Import playlists written by export. A playlist with the same name as a
saved one replaces it. Nothing is saved if any playlist references an
unknown pose.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			format, err := playlistFormat(as, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid format", err)
			}
			file, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open playlists", err)
			}
			defer file.Close()

			docs, err := export.ReadPlaylists(file, format)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read playlists", err)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)

			lib, err := opts.loadLibrary(cmd.Context(), st)
			if err != nil {
				return err
			}

			var errs []compiler.ValidationError
			for _, d := range docs {
				r := d.Routine()
				r.ID = library.PlaylistPrefix + d.Name
				errs = append(errs, compiler.Validate(&r, lib.Catalog())...)
			}
			if len(errs) > 0 {
				return invalidDefinitions(f, errs)
			}

			names := make([]string, 0, len(docs))
			for _, d := range docs {
				if err := st.SavePlaylist(cmd.Context(), d.Name, d.Routine()); err != nil {
					return WrapExitError(ExitFailure, "failed to save playlist", err)
				}
				names = append(names, d.Name)
			}
			return f.Render(map[string][]string{"imported": names}, func(w io.Writer) {
				fmt.Fprintf(w, "Imported %d playlist(s): %s\n", len(names), strings.Join(names, ", "))
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "document format: json or yaml (default from the file extension, else json)")
	return cmd
}

// playlistFormat picks the document format from the flag, else from the
// file extension, else JSON.
func playlistFormat(flag, path string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return export.FormatYAML, nil
	default:
		return export.FormatJSON, nil
	}
}

// invalidDefinitions reports validation errors and fails the command.
func invalidDefinitions(f *OutputFormatter, errs []compiler.ValidationError) error {
	if f.JSON() {
		_ = f.Error(CodeInvalidLibrary, fmt.Sprintf("%d validation error(s)", len(errs)), errs)
	} else {
		w := f.GetErrWriter()
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
}
