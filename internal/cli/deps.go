package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/deps"
	"github.com/roach88/rtsl/internal/wire"
)

// DepsOptions holds flags for the deps command.
type DepsOptions struct {
	*RootOptions
	IDs []int64 // start the closure from these records instead of the roots
}

// DepsResult holds the dependency analysis of a payload.
type DepsResult struct {
	From         []wire.ReferenceID `json:"from"`
	Dependencies []wire.ReferenceID `json:"dependencies"`
	Order        []wire.ReferenceID `json:"order"`
	Cycles       []deps.Cycle       `json:"cycles"`
	Dangling     []deps.Dangling    `json:"dangling"`
}

// NewDepsCommand creates the deps command.
func NewDepsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DepsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deps <payload>",
		Short: "Show the dependencies and load order of a payload",
		Long: `List the ids transitively referenced from the payload's roots (or from
the records given with --id), the dependencies-first load order, reference
cycles, and references to ids with no record.

Exit codes:
  0 - No dangling references (or not strict)
  1 - Dangling references found and RTSL_STRICT is set
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.IDs, "id", nil, "record id to start from (repeatable)")

	return cmd
}

func runDeps(opts *DepsOptions, payloadPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	data, err := readPayload(payloadPath)
	if err != nil {
		return fail(f, err)
	}
	eng := newEngine(opts.RootOptions)
	p, err := eng.Decode(data)
	if err != nil {
		return fail(f, err)
	}

	walker := deps.NewWalker(eng.Types())
	result := DepsResult{From: p.Roots}
	var closure wire.IDSet
	if len(opts.IDs) > 0 {
		result.From = make([]wire.ReferenceID, len(opts.IDs))
		for i, id := range opts.IDs {
			result.From[i] = wire.ReferenceID(id)
		}
		closure, err = walker.Closure(p, result.From...)
	} else {
		closure, err = eng.ComputeDependencies(data)
	}
	if err != nil {
		return fail(f, err)
	}
	result.Dependencies = closure.Sorted()

	order, err := walker.LoadOrder(p)
	if err != nil {
		return fail(f, err)
	}
	result.Order = order.IDs
	result.Cycles = order.Cycles
	result.Dangling = deps.FindDangling(p)

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		printDeps(f, result)
	}

	if opts.Config.Strict && len(result.Dangling) > 0 {
		dangling := wire.NewDangling(deps.DanglingIDs(result.Dangling).Sorted())
		return WrapExitError(ExitFailure, "dangling references", dangling)
	}
	return nil
}

func printDeps(f *OutputFormatter, r DepsResult) {
	fmt.Fprintf(f.Writer, "From:         %v\n", r.From)
	fmt.Fprintf(f.Writer, "Dependencies: %v\n", r.Dependencies)
	fmt.Fprintf(f.Writer, "Load order:   %v\n", r.Order)

	if len(r.Cycles) > 0 {
		fmt.Fprintf(f.Writer, "\nCycles (%d):\n", len(r.Cycles))
		for _, c := range r.Cycles {
			fmt.Fprintf(f.Writer, "  %s\n", c)
		}
	}
	if len(r.Dangling) > 0 {
		fmt.Fprintf(f.Writer, "\nDangling (%d):\n", len(r.Dangling))
		for _, d := range r.Dangling {
			if d.From == wire.NoReference {
				fmt.Fprintf(f.Writer, "  root -> %d\n", d.Target)
				continue
			}
			fmt.Fprintf(f.Writer, "  %d.%d -> %d\n", d.From, d.Slot, d.Target)
		}
	}
}
