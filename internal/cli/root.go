// Package cli implements the poser command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/config"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/session"
	"github.com/roach88/poser/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the poser CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "poser",
		Short: "poser - posing practice timer",
		Long: `A posing-practice timer for physique athletes.

Routines of poses are compiled into a run list and walked through
transition, countdown and hold phases with spoken and audible cues.
Finished sessions are kept in a local history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.Config()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			setupLogging(cmd.ErrOrStderr(), cfg.Logging.Level, opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default "+config.ConfigFile()+")")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRoutinesCommand(opts))
	cmd.AddCommand(NewPosesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPlaylistsCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Config loads the configuration once: built-in defaults, then the config
// file, then POSER_* environment variables.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	v, err := config.NewViper(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database. The caller closes it.
func (o *RootOptions) openStore() (*store.Store, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Paths.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	slog.Debug("database ready", "path", cfg.Paths.Database)
	return st, nil
}

// loadLibrary layers the configured library directory and the poses and
// playlists in st over the built-in catalog. st may be nil.
func (o *RootOptions) loadLibrary(ctx context.Context, st *store.Store) (*library.Library, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	lib, err := session.LoadLibrary(ctx, cfg.Paths.Library, st)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load library", err)
	}
	return lib, nil
}

// closeStore closes st, logging rather than returning the error.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// unknownRoutine reports a key that names no routine or master.
func unknownRoutine(f *OutputFormatter, err error) error {
	if errors.Is(err, library.ErrUnknownKey) {
		if f.JSON() {
			_ = f.Error(CodeUnknownRoutine, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "unknown routine", err)
	}
	if f.JSON() {
		_ = f.Error(CodeCompile, err.Error(), nil)
	}
	return WrapExitError(ExitFailure, "failed to compile routine", err)
}

// setupLogging installs the default slog handler on w. Verbose forces the
// debug level.
func setupLogging(w io.Writer, level string, verbose bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
