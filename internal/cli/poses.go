package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/store"
)

// NewPosesCommand creates the poses command group.
func NewPosesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poses",
		Short: "List and manage poses",
		Long: `List the pose catalog and manage custom poses.

Custom poses are stored in the local database. Their ID is derived from
the label: accents are dropped, letters lower-cased and everything else
becomes an underscore ("Côte Twist" becomes cote_twist).`,
	}

	cmd.AddCommand(newPosesListCommand(rootOpts))
	cmd.AddCommand(newPosesAddCommand(rootOpts))
	cmd.AddCommand(newPosesRemoveCommand(rootOpts))
	return cmd
}

func newPosesListCommand(opts *RootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List poses",
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

			lib, err := opts.loadLibrary(cmd.Context(), st)
			if err != nil {
				return err
			}
			poses := lib.Poses(category)
			return f.Render(poses, func(w io.Writer) {
				writePoses(w, poses)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}

func writePoses(w io.Writer, poses []ir.Pose) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tCATEGORY\tALIASES\t")
	for _, p := range poses {
		label := p.Label
		if p.SymmetryTurn {
			label += " ↻"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", p.ID, label, p.Category, strings.Join(p.Aliases, ", "))
	}
	tw.Flush()
}

var categories = []string{
	ir.CategorySymmetry,
	ir.CategoryMuscularity,
	ir.CategoryOptional,
	ir.CategoryFavourite,
	ir.CategoryCustom,
}

type addPoseOptions struct {
	spoken     string
	category   string
	turn       bool
	transition float64
	hold       float64
}

func newPosesAddCommand(opts *RootOptions) *cobra.Command {
	var add addPoseOptions
	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a custom pose",
		Example: `  poser poses add "Abdominal and Thigh"
  poser poses add "Side Triceps (left)" --spoken "Side triceps, left" --hold 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddPose(opts, add, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&add.spoken, "spoken", "", "text spoken instead of the label")
	cmd.Flags().StringVar(&add.category, "category", ir.CategoryCustom, "pose category")
	cmd.Flags().BoolVar(&add.turn, "turn", false, "reached by a quarter turn")
	cmd.Flags().Float64Var(&add.transition, "transition", 0, "default transition seconds")
	cmd.Flags().Float64Var(&add.hold, "hold", 0, "default hold seconds")
	return cmd
}

func runAddPose(opts *RootOptions, add addPoseOptions, label string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	label = strings.TrimSpace(label)
	id := library.NormalizePoseID(label)
	if id == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("label %q has no letters or digits", label))
	}
	if !slices.Contains(categories, add.category) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown category %q: must be one of %v", add.category, categories))
	}
	if add.transition < 0 || add.hold < 0 {
		return NewExitError(ExitCommandError, "durations must be non-negative")
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
	if existing, ok := lib.Pose(ir.PoseRef(id)); ok && !existing.Custom {
		return NewExitError(ExitCommandError, fmt.Sprintf("pose %q is part of the catalog", id))
	}

	pose := ir.Pose{
		ID:                ir.PoseRef(id),
		Label:             label,
		SpokenAlias:       add.spoken,
		Category:          add.category,
		SymmetryTurn:      add.turn,
		DefaultTransition: flagSeconds(add.transition),
		DefaultHold:       flagSeconds(add.hold),
		Custom:            true,
	}
	if err := st.SaveCustomPose(cmd.Context(), pose); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return WrapExitError(ExitCommandError, "failed to add pose", err)
		}
		return WrapExitError(ExitFailure, "failed to add pose", err)
	}

	return f.Render(pose, func(w io.Writer) {
		fmt.Fprintf(w, "Added %s (%s)\n", pose.Label, pose.ID)
	})
}

func newPosesRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id>",
		Aliases:       []string{"remove"},
		Short:         "Remove a custom pose",
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

			id := ir.PoseRef(args[0])
			if err := st.DeleteCustomPose(cmd.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					if f.JSON() {
						_ = f.Error(CodeNotFound, err.Error(), nil)
					}
					return WrapExitError(ExitCommandError, "failed to remove pose", err)
				}
				return WrapExitError(ExitFailure, "failed to remove pose", err)
			}
			return f.Render(map[string]string{"removed": string(id)}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %s\n", id)
			})
		},
	}
}
