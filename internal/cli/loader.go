package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/roach88/rtsl/internal/deps"
	"github.com/roach88/rtsl/internal/project"
	"github.com/roach88/rtsl/internal/scene"
	"github.com/roach88/rtsl/internal/serializer"
	"github.com/roach88/rtsl/internal/store"
	"github.com/roach88/rtsl/internal/wire"
)

// newEngine returns an engine over the scene types, logging through opts.
func newEngine(opts *RootOptions) *serializer.Engine {
	return serializer.New(scene.NewRegistry(), serializer.WithLogger(opts.logger()))
}

// loadOptions returns the load options the configuration asks for.
func loadOptions(opts *RootOptions) []deps.LoadOption {
	if opts.Config.Strict {
		return []deps.LoadOption{deps.FailOnDangling()}
	}
	return nil
}

// loadScene reads and builds a scene file.
func loadScene(path string) (*scene.Scene, error) {
	f, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return scene.Build(f)
}

// readPayload reads an encoded payload file.
func readPayload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// openProject opens the project store at opts.DB. Close the returned store
// when done.
func openProject(opts *RootOptions) (*project.Project, *store.Store, error) {
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, nil, err
	}
	eng := newEngine(opts)
	return project.New(st, eng, project.WithLogger(opts.logger())), st, nil
}

// splitScenePath splits "a/b/name" into folder "a/b" and name.
func splitScenePath(p string) (folder, name string) {
	p = strings.Trim(p, "/")
	folder, name = path.Split(p)
	return strings.TrimSuffix(folder, "/"), name
}

// classify maps an error to its exit code and CLI error code.
func classify(err error) (exit int, code string) {
	var nameErr *project.NameError
	switch {
	case wire.IsFormatError(err):
		return ExitCommandError, ErrCodeFormat
	case wire.IsTypeMismatch(err):
		return ExitCommandError, ErrCodeTypeMismatch
	case wire.IsUnresolved(err):
		return ExitCommandError, ErrCodeUnresolved
	case wire.IsDangling(err):
		return ExitFailure, ErrCodeDangling
	case errors.As(err, &nameErr):
		return ExitCommandError, ErrCodeInvalidName
	case errors.Is(err, project.ErrBusy):
		return ExitCommandError, ErrCodeBusy
	case errors.Is(err, store.ErrExists):
		return ExitCommandError, ErrCodeExists
	case errors.Is(err, store.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExitCommandError, ErrCodeNotFound
	}
	return ExitCommandError, ErrCodeGeneric
}

// fail reports err with the codes classify picks.
func fail(f *OutputFormatter, err error) error {
	exit, code := classify(err)
	return f.Fail(exit, code, err, nil)
}
