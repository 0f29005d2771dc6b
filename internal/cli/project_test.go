package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitScenePath(t *testing.T) {
	tests := []struct {
		in, folder, name string
	}{
		{"Level1", "", "Level1"},
		{"levels/Level1", "levels", "Level1"},
		{"/a/b/Level1/", "a/b", "Level1"},
	}
	for _, tt := range tests {
		folder, name := splitScenePath(tt.in)
		assert.Equal(t, tt.folder, folder, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := setupProject(t)
	scenePath := writeFile(t, dir, "cube.yaml", cubeScene)

	out, _, err := execute(t, "save", scenePath, "levels/Level1", "--parents")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved levels/Level1 (7 record(s), revision 1)")

	out, _, err = execute(t, "--format", "json", "load", "levels/level1")
	require.NoError(t, err)

	var result LoadSceneResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "levels/Level1", result.Path, "lookup ignores case, stored spelling wins")
	assert.Equal(t, 7, result.Records)
	assert.Equal(t, 7, result.Objects)
	assert.Equal(t, []string{"cube", "lamp", "hills"}, result.Roots)
	assert.Equal(t, 2, result.Cycles, "each object forms a cycle with its components")
	assert.Empty(t, result.Dangling)
}

func TestSaveRequiresOverwrite(t *testing.T) {
	dir := setupProject(t)
	scenePath := writeFile(t, dir, "cube.yaml", cubeScene)

	_, _, err := execute(t, "save", scenePath, "Level1")
	require.NoError(t, err)

	out, _, err := execute(t, "--format", "json", "save", scenePath, "LEVEL1")
	require.Error(t, err)
	assert.Equal(t, ErrCodeExists, decodeResponse(t, out, nil).Error.Code)

	out, _, err = execute(t, "--format", "json", "save", scenePath, "LEVEL1", "--overwrite", "--root", "lamp")
	require.NoError(t, err)
	var saved SceneResult
	decodeResponse(t, out, &saved)
	assert.Equal(t, "Level1", saved.Path)
	assert.Equal(t, int64(2), saved.Revision)
	assert.Equal(t, 2, saved.Records)
}

func TestSaveErrors(t *testing.T) {
	dir := setupProject(t)
	scenePath := writeFile(t, dir, "cube.yaml", cubeScene)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"invalid name", []string{"save", scenePath, "1st"}, ErrCodeInvalidName},
		{"reserved characters", []string{"save", scenePath, "a*b"}, ErrCodeInvalidName},
		{"missing folder", []string{"save", scenePath, "nowhere/Level1"}, ErrCodeNotFound},
		{"missing scene file", []string{"save", filepath.Join(dir, "nope.yaml"), "Level1"}, ErrCodeNotFound},
		{"unknown root", []string{"save", scenePath, "Level1", "--root", "ghost"}, ErrCodeScene},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Equal(t, tt.code, decodeResponse(t, out, nil).Error.Code)
		})
	}
}

func TestLoadMissingScene(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, "--format", "json", "load", "Nothing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeResponse(t, out, nil).Error.Code)
}

func TestListAndRemove(t *testing.T) {
	dir := setupProject(t)
	scenePath := writeFile(t, dir, "cube.yaml", cubeScene)

	out, _, err := execute(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty)")

	_, _, err = execute(t, "save", scenePath, "levels/Level1", "-p")
	require.NoError(t, err)
	_, _, err = execute(t, "save", scenePath, "Intro")
	require.NoError(t, err)

	out, _, err = execute(t, "--format", "json", "ls")
	require.NoError(t, err)
	var entries []ListEntry
	decodeResponse(t, out, &entries)
	require.Len(t, entries, 2)
	byName := map[string]ListEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, "folder", byName["levels"].Kind)
	assert.Equal(t, "scene", byName["Intro"].Kind)
	assert.Equal(t, 7, byName["Intro"].Records)

	out, _, err = execute(t, "ls", "levels")
	require.NoError(t, err)
	assert.Contains(t, out, "Level1")

	out, _, err = execute(t, "rm", "levels/Level1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Removed levels/Level1")

	_, _, err = execute(t, "rm", "--folder", "levels")
	require.NoError(t, err)

	out, _, err = execute(t, "--format", "json", "ls")
	require.NoError(t, err)
	decodeResponse(t, out, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Intro", entries[0].Name)
}

func TestRemoveErrors(t *testing.T) {
	setupProject(t)

	out, _, err := execute(t, "--format", "json", "rm", "Ghost")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, decodeResponse(t, out, nil).Error.Code)

	out, _, err = execute(t, "--format", "json", "rm", "--folder", "/")
	require.Error(t, err)
	assert.Equal(t, ErrCodeGeneric, decodeResponse(t, out, nil).Error.Code)
	assert.Contains(t, decodeResponse(t, out, nil).Error.Message, "project root")
}
