package cli

import (
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/ir"
)

// overrideFlags are the compile-time adjustments shared by run, compile and
// share encode. Only flags given on the command line become overrides.
type overrideFlags struct {
	hold       float64
	transition float64
	repeat     int
	rest       float64
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.hold, "every-hold", 0, "hold seconds for every pose")
	cmd.Flags().Float64Var(&f.transition, "every-transition", 0, "transition seconds for every pose")
	cmd.Flags().IntVar(&f.repeat, "repeat", 0, "number of loops through the routine")
	cmd.Flags().Float64Var(&f.rest, "rest", 0, "rest seconds between loops")
}

func (f *overrideFlags) overrides(cmd *cobra.Command) ir.Overrides {
	var ov ir.Overrides
	if cmd.Flags().Changed("every-hold") {
		ov.EveryHold = ir.Dur(flagSeconds(f.hold))
	}
	if cmd.Flags().Changed("every-transition") {
		ov.EveryTransition = ir.Dur(flagSeconds(f.transition))
	}
	if cmd.Flags().Changed("repeat") {
		ov.LoopRepeatCount = ir.Int(f.repeat)
	}
	if cmd.Flags().Changed("rest") {
		ov.LoopRest = ir.Dur(flagSeconds(f.rest))
	}
	return ov
}

// flagSeconds converts fractional seconds to a duration in whole
// milliseconds. Negative values pass through for the compiler to reject.
func flagSeconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}
