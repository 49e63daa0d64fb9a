package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/compiler"
	"github.com/roach88/poser/internal/export"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/share"
)

// NewShareCommand creates the share command group.
func NewShareCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Encode and import share links",
		Long: fmt.Sprintf(`A share link carries a whole routine in its %q query parameter, so it
can be sent to someone without a server in between.`, share.Param),
	}
	cmd.AddCommand(newShareEncodeCommand(rootOpts))
	cmd.AddCommand(newShareImportCommand(rootOpts))
	return cmd
}

func newShareEncodeCommand(opts *RootOptions) *cobra.Command {
	var (
		base  string
		flags overrideFlags
	)
	cmd := &cobra.Command{
		Use:   "encode <routine>",
		Short: "Print a share link for a routine",
		Long: `Print a share link for a routine. Hold and transition overrides travel
with the link and are applied when it is imported.`,
		Example: `  poser share encode classic_symmetry_loop --base https://example.com/practice
  poser share encode custom_morning --every-hold 30`,
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

			lib, err := opts.loadLibrary(cmd.Context(), st)
			if err != nil {
				return err
			}
			sel, err := lib.Resolve(args[0])
			if err != nil {
				return unknownRoutine(f, err)
			}
			if sel.IsMaster() {
				return NewExitError(ExitCommandError, fmt.Sprintf("%q is a master; only routines can be shared", sel.Key))
			}

			link, err := share.Encode(*sel.Routine, flags.overrides(cmd), base)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode link", err)
			}
			return f.Render(map[string]string{"link": link}, func(w io.Writer) {
				fmt.Fprintln(w, link)
			})
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "URL the query string is appended to")
	flags.register(cmd)
	return cmd
}

func newShareImportCommand(opts *RootOptions) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "import <link>",
		Short: "Decode a share link",
		Long: `Decode a share link, a bare query string or a bare token and show the
routine it carries. With --save the routine is stored as a playlist.`,
		Example:       `  poser share import "https://example.com/practice?preset=eyJ2Ijox..." --save from_coach`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			r, err := share.Decode(args[0])
			if err != nil {
				if f.JSON() {
					_ = f.Error(CodeInvalidLink, err.Error(), nil)
				}
				if errors.Is(err, share.ErrUnsupportedVersion) {
					return WrapExitError(ExitFailure, "link needs a newer version", err)
				}
				return WrapExitError(ExitCommandError, "failed to decode link", err)
			}

			name := strings.TrimSpace(save)
			if name == "" {
				doc := export.NewPlaylistDoc(r.Label, r)
				return f.Render(doc, func(w io.Writer) {
					writeSharedRoutine(w, doc)
				})
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
	cmd.Flags().StringVar(&save, "save", "", "save as a playlist with this name")
	return cmd
}

func writeSharedRoutine(w io.Writer, doc export.PlaylistDoc) {
	fmt.Fprintf(w, "%s · %d loop(s)", doc.Name, doc.RepeatCount)
	if doc.LoopRestSec > 0 {
		fmt.Fprintf(w, " · %s rest", formatSeconds(doc.LoopRestSec))
	}
	fmt.Fprintln(w)
	for i, it := range doc.Items {
		fmt.Fprintf(w, "  %d. %s  %s + %s\n", i+1, it.PoseID, formatSeconds(it.TransitionSec), formatSeconds(it.HoldSec))
	}
}
