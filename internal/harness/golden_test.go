package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGoldenSoloObject(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/solo_object.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshotEndsWithNewline(t *testing.T) {
	r := &Result{Canonical: []byte(`{"a":1}`)}
	assert.Equal(t, "{\"a\":1}\n", string(Snapshot(r)))
	assert.Equal(t, `{"a":1}`, string(r.Canonical), "canonical bytes untouched")
}
