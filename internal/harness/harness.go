package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/rtsl/internal/deps"
	"github.com/roach88/rtsl/internal/scene"
	"github.com/roach88/rtsl/internal/serializer"
	"github.com/roach88/rtsl/internal/wire"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	engine *serializer.Engine
	logger *slog.Logger
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns the result. Assertion failures
// are reported in the result; the error is for scenarios that cannot run.
//
// Execution flow:
//  1. Build the scene and pick the roots
//  2. Serialize with a fixed pass id
//  3. Drop records of DropTypes and re-encode
//  4. Deserialize and, when nothing was dropped, re-serialize the roots
//  5. Evaluate assertions
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	sc, err := buildScene(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}
	roots, err := sc.Select(scenario.Roots...)
	if err != nil {
		return nil, err
	}

	passID := scenario.PassID
	if passID == "" {
		passID = "scenario-" + scenario.Name
	}
	// Discard logs; the result carries everything a test needs.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		engine: serializer.New(scene.NewRegistry(),
			serializer.WithLogger(logger),
			serializer.WithPassIDs(serializer.NewFixedGenerator(passID)),
		),
		logger: logger,
	}
	return h.run(ctx, scenario, roots)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, roots []any) (*Result, error) {
	data, p, err := h.engine.SerializePayload(ctx, roots...)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize: %w", err)
	}

	if len(scenario.DropTypes) > 0 {
		p, err = h.drop(p, scenario.DropTypes)
		if err != nil {
			return nil, err
		}
		if data, err = wire.Encode(p); err != nil {
			return nil, fmt.Errorf("failed to re-encode: %w", err)
		}
	}

	loaded, err := h.engine.Deserialize(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize: %w", err)
	}

	result := NewResult()
	result.Roots = slices.Clone(p.Roots)
	result.Order = loaded.Order
	result.Digest = wire.Digest(data)
	for _, rec := range p.Records {
		result.Records = append(result.Records, RecordSummary{ID: rec.ID, Tag: rec.Tag, Type: h.typeName(rec.Tag)})
	}
	for _, c := range loaded.Cycles {
		result.Cycles = append(result.Cycles, c.IDs)
	}
	result.Dangling = append(result.Dangling, deps.DanglingIDs(loaded.Dangling).Sorted()...)

	if len(scenario.DropTypes) == 0 {
		again, err := h.engine.Serialize(ctx, loaded.Roots...)
		if err != nil {
			return nil, fmt.Errorf("failed to re-serialize: %w", err)
		}
		result.RoundTrip = bytes.Equal(data, again)
	}

	if result.Canonical, err = wire.MarshalCanonical(p, h.engine.Types()); err != nil {
		return nil, fmt.Errorf("failed to render payload: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	h.logger.Debug("scenario finished", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

// drop returns p without records whose type name is listed.
func (h *Harness) drop(p *wire.Payload, names []string) (*wire.Payload, error) {
	for _, name := range names {
		if !h.knownType(name) {
			return nil, fmt.Errorf("drop_types: unknown type %q", name)
		}
	}
	kept := make([]*wire.Record, 0, len(p.Records))
	for _, rec := range p.Records {
		if !slices.Contains(names, h.typeName(rec.Tag)) {
			kept = append(kept, rec)
		}
	}
	return wire.NewPayload(p.Roots, kept), nil
}

func (h *Harness) typeName(tag wire.Tag) string {
	if l, ok := h.engine.Types().Layout(tag); ok {
		return l.Name
	}
	return fmt.Sprintf("tag(%d)", tag)
}

func (h *Harness) knownType(name string) bool {
	for _, d := range h.engine.Types().Table() {
		if d.Name == name {
			return true
		}
	}
	return false
}

func buildScene(s *Scenario) (*scene.Scene, error) {
	f := s.Inline
	if f == nil {
		var err error
		if f, err = scene.LoadFile(s.Scene); err != nil {
			return nil, err
		}
	}
	return scene.Build(f)
}
