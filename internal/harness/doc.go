// Package harness runs conformance scenarios against the serialization
// engine.
//
// A scenario builds a scene, serializes it, optionally drops records of
// some types to simulate a truncated payload, deserializes the result and
// checks assertions against what happened.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: mesh_dropped
//	description: "Dropping the mesh leaves one dangling reference"
//	scene: ../scenes/cube.yaml
//	roots: [cube]
//	drop_types: [Mesh]
//	pass_id: scenario-mesh-dropped
//	assertions:
//	  - type: record_count
//	    count: 3
//	  - type: dangling
//	    ids: [4]
//
// The scene is either a path to a scene file (relative to the scenario) or
// an inline scene under "inline". Roots name objects or terrains; when
// omitted the scene's own roots are used.
//
// # Assertion Types
//
//   - record_count: the payload holds exactly Count records
//   - type_count: the payload holds exactly Count records of RecordType
//   - cycle_count: the load found exactly Count reference cycles
//   - dangling: the load left exactly IDs unresolved
//   - round_trip: re-serializing the loaded roots reproduces the bytes
//
// # Deterministic Testing
//
// Every run uses a fixed pass id and a fresh registry, so the canonical
// JSON of a scenario's payload is stable and can be compared against a
// golden file with RunWithGolden.
package harness
