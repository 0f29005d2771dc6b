package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const cubeScene = `name: cube
meshes:
  - name: cube
    vertices: [0, 0, 0, 1, 0, 0, 1, 1, 0]
    triangles: [0, 1, 2]
objects:
  - name: cube
    mesh: cube
  - name: lamp
terrains:
  - name: hills
    heightmap_resolution: 2
    size: [10, 5, 10]
    heights:
      - [0, 1]
      - [1, 0]
`

// setupProject points RTSL_DB at a fresh database and returns the temp
// dir it lives in.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RTSL_DB", filepath.Join(dir, "project.db"))
	t.Setenv("RTSL_STRICT", "false")
	t.Setenv("RTSL_LOG_LEVEL", "warn")
	t.Setenv("RTSL_LOG_FORMAT", "text")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse parses a JSON CLI response, decoding its data into v
// when v is non-nil.
func decodeResponse(t *testing.T, out string, v any) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		require.NotEmpty(t, resp.Data, "response has no data")
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}
