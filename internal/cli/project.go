package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/rtsl/internal/deps"
	"github.com/roach88/rtsl/internal/scene"
	"github.com/roach88/rtsl/internal/store"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Overwrite bool
	Parents   bool
	Roots     []string
}

// SceneResult describes a stored scene.
type SceneResult struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Records  int    `json:"records"`
	Bytes    int    `json:"bytes"`
	Digest   string `json:"digest"`
	Revision int64  `json:"revision"`
}

func sceneResult(folder string, sc store.Scene) SceneResult {
	path := sc.Name
	if folder != "" {
		path = folder + "/" + sc.Name
	}
	return SceneResult{
		ID:       sc.ID,
		Path:     path,
		Records:  sc.Records,
		Bytes:    sc.Size,
		Digest:   sc.Digest,
		Revision: sc.Revision,
	}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <scene.yaml> <folder/name>",
		Short: "Save a scene file into the project database",
		Long: `Build a scene file, serialize it and store it under a project path.

Scene names must start with a letter and may not contain \ / : * ? " < > |.
Names are compared ignoring case; saving over an existing scene requires
--overwrite.

Examples:
  rtsl save level.yaml levels/Level1
  rtsl save level.yaml levels/level1 --overwrite
  rtsl --db game.db save level.yaml new/dir/Level2 --parents`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing scene with the same name")
	cmd.Flags().BoolVarP(&opts.Parents, "parents", "p", false, "create missing folders")
	cmd.Flags().StringSliceVar(&opts.Roots, "root", nil, "root object or terrain name (repeatable)")

	return cmd
}

func runSave(opts *SaveOptions, scenePath, target string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

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

	proj, st, err := openProject(opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	defer st.Close()

	folder, name := splitScenePath(target)
	if opts.Parents && folder != "" {
		if _, err := st.MkdirAll(ctx, folder); err != nil {
			return fail(f, err)
		}
	}

	saved, err := proj.SaveScene(ctx, folder, name, opts.Overwrite, roots...)
	if err != nil {
		return fail(f, err)
	}

	result := sceneResult(folder, saved)
	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ Saved %s (%d record(s), revision %d)\n", result.Path, result.Records, result.Revision)
	f.VerboseLog("  id %s, digest %s", result.ID, result.Digest)
	return nil
}

// LoadSceneResult describes a loaded scene.
type LoadSceneResult struct {
	SceneResult
	Objects  int             `json:"objects"`
	Roots    []string        `json:"roots"`
	Cycles   int             `json:"cycles"`
	Dangling []deps.Dangling `json:"dangling"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <folder/name>",
		Short: "Load a scene from the project database",
		Long: `Read a stored scene, verify its digest and rebuild its object graph.

References to objects missing from the payload are left unset and reported.
With RTSL_STRICT set they fail the load instead (exit code 1).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

func runLoad(opts *RootOptions, target string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	proj, st, err := openProject(opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	defer st.Close()

	folder, name := splitScenePath(target)
	res, stored, err := proj.LoadScene(cmd.Context(), folder, name, loadOptions(opts)...)
	if err != nil {
		return fail(f, err)
	}

	live := scene.FromRoots(stored.Name, res.Roots)
	result := LoadSceneResult{
		SceneResult: sceneResult(folder, stored),
		Objects:     len(res.Objects),
		Roots:       []string{},
		Cycles:      len(res.Cycles),
		Dangling:    res.Dangling,
	}
	for _, g := range live.Objects {
		if t := g.Transform(); t == nil || t.Parent == nil {
			result.Roots = append(result.Roots, g.Name)
		}
	}
	for _, t := range live.Terrains {
		result.Roots = append(result.Roots, t.Name)
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ Loaded %s (revision %d)\n", result.Path, result.Revision)
	fmt.Fprintf(f.Writer, "  Objects: %d\n", result.Objects)
	fmt.Fprintf(f.Writer, "  Roots:   %v\n", result.Roots)
	fmt.Fprintf(f.Writer, "  Cycles:  %d\n", result.Cycles)
	if len(result.Dangling) > 0 {
		fmt.Fprintf(f.Writer, "  Dangling references left unset: %v\n", deps.DanglingIDs(result.Dangling).Sorted())
	}
	return nil
}

// ListEntry is one item in a folder listing.
type ListEntry struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Records  int    `json:"records,omitempty"`
	Revision int64  `json:"revision,omitempty"`
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls [folder]",
		Short:         "List folders and scenes in the project database",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			return runList(rootOpts, folder, cmd)
		},
	}
}

func runList(opts *RootOptions, folder string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.DB)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	defer st.Close()

	dir, err := st.ResolveFolder(ctx, folder)
	if err != nil {
		return fail(f, err)
	}
	items, err := st.List(ctx, dir.ID)
	if err != nil {
		return fail(f, err)
	}

	entries := make([]ListEntry, 0, len(items))
	for _, item := range items {
		e := ListEntry{Name: item.Name, Kind: string(item.Kind)}
		if item.Kind == store.KindScene {
			info, err := st.SceneInfo(ctx, item.ID)
			if err != nil {
				return fail(f, err)
			}
			e.Records = info.Records
			e.Revision = info.Revision
		}
		entries = append(entries, e)
	}

	if f.JSON() {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "(empty)")
		return nil
	}
	for _, e := range entries {
		if e.Kind == string(store.KindFolder) {
			fmt.Fprintf(f.Writer, "%s/\n", e.Name)
			continue
		}
		fmt.Fprintf(f.Writer, "%s\t%d record(s), rev %d\n", e.Name, e.Records, e.Revision)
	}
	return nil
}

// RemoveOptions holds flags for the rm command.
type RemoveOptions struct {
	*RootOptions
	Folder bool
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "rm <folder/name>",
		Short:         "Delete a scene (or, with --folder, a folder and its contents)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Folder, "folder", false, "delete a folder and everything in it")
	return cmd
}

func runRemove(opts *RemoveOptions, target string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	proj, st, err := openProject(opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err, nil)
	}
	defer st.Close()

	if opts.Folder {
		dir, err := st.ResolveFolder(ctx, target)
		if err != nil {
			return fail(f, err)
		}
		if dir.ID == "" {
			return f.Fail(ExitCommandError, ErrCodeGeneric, errors.New("refusing to delete the project root"), nil)
		}
		if err := st.Delete(ctx, dir.ID); err != nil {
			return fail(f, err)
		}
	} else {
		folder, name := splitScenePath(target)
		if err := proj.DeleteScene(ctx, folder, name); err != nil {
			return fail(f, err)
		}
	}

	if f.JSON() {
		return f.Success(map[string]string{"removed": target})
	}
	fmt.Fprintf(f.Writer, "✓ Removed %s\n", target)
	return nil
}
