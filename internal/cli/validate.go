package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/library"
)

// ValidationIssue is one problem found in a library.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Files    int               `json:"files"`
	Poses    int               `json:"poses"`
	Routines int               `json:"routines"`
	Masters  int               `json:"masters"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [library-dir]",
		Short: "Validate a pose and routine library",
		Long: `Validate CUE library files without running anything.

Files are checked against the library schema, then every definition is
checked against the full catalog: built-in poses and routines, the
directory being validated and the custom poses and playlists in the
database. Routines must reference known poses and masters known routines.

Without an argument the configured library directory is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else if cfg, err := rootOpts.Config(); err == nil {
				dir = cfg.Paths.Library
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	lib, err := library.Builtin()
	if err != nil {
		return WrapExitError(ExitFailure, "built-in catalog is invalid", err)
	}

	var result ValidationResult
	if dir != "" {
		defs, loadErrs := library.LoadDir(dir, library.LoadModeCollectAll)
		for _, err := range loadErrs {
			result.Errors = append(result.Errors, loadIssue(err))
		}
		if defs != nil {
			f.VerboseLog("Found %d CUE file(s) in %s", defs.FileCount, dir)
			result.Files = defs.FileCount
			result.Poses = len(defs.Poses)
			result.Routines = len(defs.Routines)
			result.Masters = len(defs.Masters)
			lib.Merge(*defs)
		}
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	custom, err := st.ListCustomPoses(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read custom poses", err)
	}
	lib.AddCustomPoses(custom...)
	playlists, err := st.ListPlaylists(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read playlists", err)
	}
	for _, p := range playlists {
		lib.AddPlaylist(p.Name, p.Routine)
	}

	for _, e := range lib.Validate() {
		result.Errors = append(result.Errors, ValidationIssue{Code: e.Code, Field: e.Field, Message: e.Message})
	}

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		return f.Render(result, func(w io.Writer) {
			if dir == "" {
				fmt.Fprintln(w, "✓ Catalog valid")
				return
			}
			fmt.Fprintf(w, "✓ %s valid: %d pose(s), %d routine(s), %d master(s) in %d file(s)\n",
				dir, result.Poses, result.Routines, result.Masters, result.Files)
		})
	}

	if f.JSON() {
		_ = f.Error(CodeInvalidLibrary, fmt.Sprintf("%d validation error(s)", len(result.Errors)), result)
	} else {
		w := f.Writer
		fmt.Fprintf(w, "✗ %d validation error(s)\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
}

func (i ValidationIssue) String() string {
	where := i.Field
	if i.File != "" {
		where = fmt.Sprintf("%s:%d", i.File, i.Line)
	}
	if where == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, where, i.Message)
}

func loadIssue(err error) ValidationIssue {
	var le *library.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: library.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	return issue
}
