package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/wire"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output string   // payload path
	Roots  []string // root object names
}

// EncodeResult describes a written payload.
type EncodeResult struct {
	Scene   string             `json:"scene"`
	Output  string             `json:"output"`
	Roots   []wire.ReferenceID `json:"roots"`
	Records int                `json:"records"`
	Bytes   int                `json:"bytes"`
	Digest  string             `json:"digest"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <scene.yaml>",
		Short: "Serialize a scene file to a payload",
		Long: `Build the scene described by a YAML file and serialize every object
reachable from its roots.

By default the roots are the scene's top-level objects and terrains and the
payload is written next to the scene with an .rtsl extension.

Examples:
  rtsl encode level.yaml
  rtsl encode level.yaml -o level.rtsl --root player`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "payload path (default <scene>.rtsl)")
	cmd.Flags().StringSliceVar(&opts.Roots, "root", nil, "root object or terrain name (repeatable)")

	return cmd
}

func runEncode(opts *EncodeOptions, scenePath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sc, err := loadScene(scenePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, err, nil)
		}
		return f.Fail(ExitCommandError, ErrCodeScene, err, nil)
	}
	roots, err := sc.Select(opts.Roots...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScene, err, nil)
	}
	f.VerboseLog("Scene %s: %d object(s), %d terrain(s), %d root(s)", sc.Name, len(sc.Objects), len(sc.Terrains), len(roots))

	data, p, err := newEngine(opts.RootOptions).SerializePayload(cmd.Context(), roots...)
	if err != nil {
		return fail(f, err)
	}

	out := opts.Output
	if out == "" {
		out = strings.TrimSuffix(scenePath, filepath.Ext(scenePath)) + ".rtsl"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing payload: %w", err), nil)
	}

	result := EncodeResult{
		Scene:   sc.Name,
		Output:  out,
		Roots:   p.Roots,
		Records: len(p.Records),
		Bytes:   len(data),
		Digest:  wire.Digest(data),
	}
	if f.JSON() {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "✓ Encoded %d record(s) to %s\n", result.Records, result.Output)
	fmt.Fprintf(f.Writer, "  Roots:  %v\n", result.Roots)
	fmt.Fprintf(f.Writer, "  Bytes:  %d\n", result.Bytes)
	fmt.Fprintf(f.Writer, "  Digest: %s\n", result.Digest)
	return nil
}
