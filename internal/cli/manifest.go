package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/manifest"
	"github.com/roach88/rtsl/internal/scene"
)

// ManifestExportOptions holds flags for manifest export.
type ManifestExportOptions struct {
	*RootOptions
	Output string
}

// ManifestCheckResult is the outcome of manifest check.
type ManifestCheckResult struct {
	Manifest string           `json:"manifest"`
	OK       bool             `json:"ok"`
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
	Drifts   []manifest.Drift `json:"drifts"`
}

// NewManifestCommand creates the manifest command group.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Pin and check the persistent type table",
		Long: `A manifest is a CUE file recording every type's tag, base and slots.
Commit it alongside the code; "manifest check" reports drift that would
make existing payloads decode differently.`,
	}
	cmd.AddCommand(newManifestExportCommand(rootOpts))
	cmd.AddCommand(newManifestCheckCommand(rootOpts))
	return cmd
}

func newManifestExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManifestExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write the current type table as a CUE manifest",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestExport(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")
	return cmd
}

func runManifestExport(opts *ManifestExportOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	data, err := manifest.Export(scene.NewRegistry())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeManifest, err, nil)
	}

	if opts.Output == "" {
		if f.JSON() {
			return f.Success(map[string]string{"manifest": string(data)})
		}
		_, err := f.Writer.Write(data)
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing manifest: %w", err), nil)
	}
	if f.JSON() {
		return f.Success(map[string]string{"output": opts.Output})
	}
	fmt.Fprintf(f.Writer, "✓ Manifest written to %s\n", opts.Output)
	return nil
}

func newManifestCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest.cue>",
		Short: "Compare a manifest against the current type table",
		Long: `Report drift between a committed manifest and the current types.

Exit codes:
  0 - No error-severity drift (additions and warnings are allowed)
  1 - Error-severity drift found
  2 - Command error (unreadable or invalid manifest)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifestCheck(rootOpts, args[0], cmd)
		},
	}
}

func runManifestCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	m, err := manifest.Load(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeManifest, err, nil)
	}
	report := manifest.Check(m, scene.NewRegistry())

	result := ManifestCheckResult{
		Manifest: path,
		OK:       report.OK(),
		Errors:   report.Count(manifest.SeverityError),
		Warnings: report.Count(manifest.SeverityWarning),
		Drifts:   report.Drifts,
	}

	if f.JSON() {
		if result.OK {
			return f.Success(result)
		}
		return f.Fail(ExitFailure, ErrCodeDrift,
			fmt.Errorf("%d error-severity drift(s)", result.Errors), result)
	}

	for _, d := range result.Drifts {
		fmt.Fprintf(f.Writer, "%-7s %-18s %s\n", d.Severity, d.Code, d.Message)
	}
	if !result.OK {
		fmt.Fprintf(f.Writer, "\n✗ %d error(s), %d warning(s)\n", result.Errors, result.Warnings)
		return NewExitError(ExitFailure, fmt.Sprintf("%d error-severity drift(s)", result.Errors))
	}
	fmt.Fprintf(f.Writer, "✓ Manifest matches (%d warning(s), %d drift(s) total)\n", result.Warnings, len(result.Drifts))
	return nil
}
