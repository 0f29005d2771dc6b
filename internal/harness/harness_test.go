package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtsl/internal/scene"
	"github.com/roach88/rtsl/internal/wire"
)

func loadAndRun(t *testing.T, path string) *Result {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestRunCubeRoundTrip(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/cube_roundtrip.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []RecordSummary{
		{ID: 1, Tag: scene.TagGameObject, Type: "GameObject"},
		{ID: 2, Tag: scene.TagTransform, Type: "Transform"},
		{ID: 3, Tag: scene.TagMeshFilter, Type: "MeshFilter"},
		{ID: 4, Tag: scene.TagMesh, Type: "Mesh"},
	}, result.Records)
	assert.Equal(t, []wire.ReferenceID{1}, result.Roots)
	assert.Equal(t, [][]wire.ReferenceID{{1, 2, 3}}, result.Cycles)
	assert.Empty(t, result.Dangling)
	assert.True(t, result.RoundTrip)
	assert.Len(t, result.Digest, 64)

	// The mesh has no references, so it loads before the cycle.
	assert.Equal(t, []wire.ReferenceID{4, 1, 2, 3}, result.Order)
}

func TestRunMeshDropped(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/mesh_dropped.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Records, 3)
	assert.Equal(t, []wire.ReferenceID{4}, result.Dangling)
	assert.False(t, result.RoundTrip, "round trip is not computed after drops")
}

func TestRunReportsFailedAssertions(t *testing.T) {
	s := &Scenario{
		Name:        "wrong",
		Description: "every assertion is off by one",
		Scene:       "testdata/scenes/cube.yaml",
		Assertions: []Assertion{
			{Type: AssertRecordCount, Count: 5},
			{Type: AssertTypeCount, RecordType: "Transform", Count: 2},
			{Type: AssertCycleCount, Count: 0},
			{Type: AssertDangling, IDs: []int64{9}},
			{Type: AssertRoundTrip},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: 5 records")
	assert.Contains(t, result.Errors[0], "Actual: 4 records")
	assert.Contains(t, result.Errors[1], "2 Transform records")
	assert.Contains(t, result.Errors[2], "Assertion failed: cycle_count")
	assert.Contains(t, result.Errors[3], "dangling ids [9]")
	assert.Contains(t, result.Errors[3], "[4] Mesh (tag 1028)")
}

func TestRunTerrainRoot(t *testing.T) {
	s := &Scenario{
		Name:        "terrain",
		Description: "terrains are roots by name",
		Inline: &scene.File{
			Name: "land",
			Terrains: []scene.TerrainDef{{
				Name:                "hills",
				HeightmapResolution: 2,
				Size:                []float32{10, 1, 10},
				Heights:             [][]float32{{0, 1}, {1, 0}},
			}},
		},
		Roots: []string{"hills"},
		Assertions: []Assertion{
			{Type: AssertRecordCount, Count: 1},
			{Type: AssertTypeCount, RecordType: "TerrainData", Count: 1},
			{Type: AssertCycleCount, Count: 0},
			{Type: AssertRoundTrip},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunErrors(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:        "bad",
			Description: "does not run",
			Scene:       "testdata/scenes/cube.yaml",
			Assertions:  []Assertion{{Type: AssertRoundTrip}},
		}
	}

	t.Run("unknown root", func(t *testing.T) {
		s := base()
		s.Roots = []string{"sphere"}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `root "sphere" not found`)
	})

	t.Run("unknown drop type", func(t *testing.T) {
		s := base()
		s.DropTypes = []string{"Sphere"}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown type "Sphere"`)
	})

	t.Run("missing scene file", func(t *testing.T) {
		s := base()
		s.Scene = "testdata/scenes/missing.yaml"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build scene")
	})
}

func TestRunIsDeterministic(t *testing.T) {
	a := loadAndRun(t, "testdata/scenarios/cube_roundtrip.yaml")
	b := loadAndRun(t, "testdata/scenarios/cube_roundtrip.yaml")

	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.Canonical, b.Canonical)
}
