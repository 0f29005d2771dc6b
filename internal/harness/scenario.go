package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rtsl/internal/scene"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is the path to a scene file. Relative paths are resolved
	// against the scenario file's directory.
	Scene string `yaml:"scene,omitempty"`

	// Inline is a scene declared in the scenario itself.
	Inline *scene.File `yaml:"inline,omitempty"`

	// Roots names the objects or terrains to serialize. Empty means the
	// scene's roots.
	Roots []string `yaml:"roots,omitempty"`

	// DropTypes removes records of these type names from the payload
	// before it is loaded.
	DropTypes []string `yaml:"drop_types,omitempty"`

	// Assertions validate the serialized payload and the load.
	Assertions []Assertion `yaml:"assertions"`

	// PassID is the fixed pass id used for the run. If empty, "scenario-"
	// plus the name is used.
	PassID string `yaml:"pass_id,omitempty"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_count": number of records in the payload
	// - "type_count": number of records of RecordType
	// - "cycle_count": number of reference cycles found by the load
	// - "dangling": ids left unresolved by the load
	// - "round_trip": re-serialization reproduces the payload bytes
	Type string `yaml:"type"`

	// Count is the expected number (record_count, type_count, cycle_count).
	Count int `yaml:"count,omitempty"`

	// RecordType is a registered type name (type_count).
	RecordType string `yaml:"record_type,omitempty"`

	// IDs are the expected dangling ids, in any order (dangling).
	IDs []int64 `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount = "record_count"
	AssertTypeCount   = "type_count"
	AssertCycleCount  = "cycle_count"
	AssertDangling    = "dangling"
	AssertRoundTrip   = "round_trip"
)

// LoadScenario reads and parses a scenario YAML file. The scene path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// the scene path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) && basePath != "" {
		scenario.Scene = filepath.Join(basePath, scenario.Scene)
	}
	if scenario.Scene != "" {
		if _, err := os.Stat(scenario.Scene); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: scene file not found: %s", scenario.Scene)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Scene paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Scene == "" && s.Inline == nil:
		return fmt.Errorf("one of scene or inline is required")
	case s.Scene != "" && s.Inline != nil:
		return fmt.Errorf("scene and inline are mutually exclusive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
		if a.Type == AssertRoundTrip && len(s.DropTypes) > 0 {
			return fmt.Errorf("assertions[%d]: round_trip cannot be combined with drop_types", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordCount, AssertCycleCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTypeCount:
		if a.RecordType == "" {
			return fmt.Errorf("assertions[%d]: record_type is required for type_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for type_count", index)
		}
	case AssertDangling, AssertRoundTrip:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
