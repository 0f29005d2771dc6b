package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/wire"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Canonical bool // print canonical JSON only
}

// RecordInfo summarizes one record.
type RecordInfo struct {
	ID   wire.ReferenceID   `json:"id"`
	Tag  wire.Tag           `json:"tag"`
	Type string             `json:"type"`
	Refs []wire.ReferenceID `json:"refs"`
}

// InspectResult describes a decoded payload.
type InspectResult struct {
	Version int                `json:"version"`
	Roots   []wire.ReferenceID `json:"roots"`
	Records []RecordInfo       `json:"records"`
	Bytes   int                `json:"bytes"`
	Digest  string             `json:"digest"`
	Payload json.RawMessage    `json:"payload"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <payload>",
		Short: "Decode a payload and show its records",
		Long: `Decode a payload against the registered types and list its records
with the ids each one references.

With --canonical the payload is printed as canonical JSON: sorted keys,
slot names from the type table, references as {"ref":id}.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "print canonical JSON only")

	return cmd
}

func runInspect(opts *InspectOptions, payloadPath string, cmd *cobra.Command) error {
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
	canonical, err := wire.MarshalCanonical(p, eng.Types())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeFormat, err, nil)
	}

	if opts.Canonical && !f.JSON() {
		fmt.Fprintln(f.Writer, string(canonical))
		return nil
	}

	result := InspectResult{
		Version: p.Version,
		Roots:   p.Roots,
		Records: make([]RecordInfo, 0, len(p.Records)),
		Bytes:   len(data),
		Digest:  wire.Digest(data),
		Payload: canonical,
	}
	for _, rec := range p.Records {
		info := RecordInfo{ID: rec.ID, Tag: rec.Tag, Type: fmt.Sprintf("tag(%d)", rec.Tag), Refs: rec.Deps().Sorted()}
		if l, ok := eng.Types().Layout(rec.Tag); ok {
			info.Type = l.Name
		}
		result.Records = append(result.Records, info)
	}

	if f.JSON() {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "Payload: %s\n", payloadPath)
	fmt.Fprintf(f.Writer, "  Version: %d\n", result.Version)
	fmt.Fprintf(f.Writer, "  Roots:   %v\n", result.Roots)
	fmt.Fprintf(f.Writer, "  Bytes:   %d\n", result.Bytes)
	fmt.Fprintf(f.Writer, "  Digest:  %s\n", result.Digest)
	fmt.Fprintf(f.Writer, "\nRecords (%d):\n", len(result.Records))
	for _, r := range result.Records {
		line := fmt.Sprintf("  [%d] %s (tag %d)", r.ID, r.Type, r.Tag)
		if len(r.Refs) > 0 {
			refs := make([]string, len(r.Refs))
			for i, id := range r.Refs {
				refs[i] = fmt.Sprint(id)
			}
			line += " -> " + strings.Join(refs, ", ")
		}
		fmt.Fprintln(f.Writer, line)
	}
	if opts.Verbose {
		fmt.Fprintf(f.Writer, "\n%s\n", canonical)
	}
	return nil
}
