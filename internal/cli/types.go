package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/manifest"
	"github.com/roach88/rtsl/internal/scene"
)

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered persistent types",
		Long: `List every registered type in registration order with its tag, base
and slot count. Use --verbose to list each type's own slots.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, cmd)
		},
	}
}

func runTypes(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	m := manifest.FromRegistry(scene.NewRegistry())
	if f.JSON() {
		return f.Success(m)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tBASE\tKIND\tSLOTS")
	for _, t := range m.Types {
		kind := "object"
		if t.Value {
			kind = "value"
		}
		base := "-"
		if t.Base != 0 {
			base = fmt.Sprint(t.Base)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", t.Tag, t.Name, base, kind, len(t.Fields))
		if opts.Verbose {
			for _, fe := range t.Fields {
				kind := fe.Kind
				if fe.Elem != 0 {
					kind = fmt.Sprintf("%s(%d)", fe.Kind, fe.Elem)
				}
				fmt.Fprintf(tw, "\t  %d %s\t\t%s\t\n", fe.Slot, fe.Name, kind)
			}
		}
	}
	return tw.Flush()
}
