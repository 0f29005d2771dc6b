// Package manifest pins the persistent type table in a CUE file.
//
// Tags and slots are part of every saved payload. A manifest records them
// so a later build can be checked for drift before it writes payloads that
// older builds (or older payloads) disagree with.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"

	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is the pinned type table.
type Manifest struct {
	FormatVersion int         `json:"format_version"`
	Types         []TypeEntry `json:"types"`
}

// TypeEntry pins one type and its own slots.
type TypeEntry struct {
	Tag    wire.Tag     `json:"tag"`
	Name   string       `json:"name"`
	Base   wire.Tag     `json:"base,omitempty"`
	Value  bool         `json:"value,omitempty"`
	Fields []FieldEntry `json:"fields"`
}

// FieldEntry pins one slot.
type FieldEntry struct {
	Slot wire.Slot `json:"slot"`
	Name string    `json:"name"`
	Kind string    `json:"kind"`
	Elem wire.Tag  `json:"elem,omitempty"`
}

// FromRegistry builds the manifest of a registry's current table.
func FromRegistry(r *surrogate.Registry) *Manifest {
	m := &Manifest{FormatVersion: wire.FormatVersion}
	for _, d := range r.Table() {
		t := TypeEntry{Tag: d.Tag, Name: d.Name, Base: d.Base, Value: d.Value, Fields: []FieldEntry{}}
		for _, f := range d.Fields {
			t.Fields = append(t.Fields, FieldEntry{Slot: f.Slot, Name: f.Name, Kind: f.Kind.String(), Elem: f.Elem})
		}
		m.Types = append(m.Types, t)
	}
	return m
}

// Export renders the registry's manifest as CUE source.
func Export(r *surrogate.Registry) ([]byte, error) {
	return Format(FromRegistry(r))
}

// Format renders m as CUE source.
func Format(m *Manifest) ([]byte, error) {
	v := cuecontext.New().Encode(m)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	node := v.Syntax(cue.Concrete(true))
	if lit, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: lit.Elts}
	}
	src, err := format.Node(node)
	if err != nil {
		return nil, fmt.Errorf("format manifest: %w", err)
	}

	header := "// rtsl type manifest. Tags and slots are persistent.\n\n"
	return append([]byte(header), src...), nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the manifest schema and decodes it.
func Parse(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("manifest_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest: %s", cueerrors.Details(err, nil))
	}
	v = schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest: %s", cueerrors.Details(err, nil))
	}

	var m Manifest
	if err := v.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	seen := make(map[wire.Tag]string, len(m.Types))
	for i, t := range m.Types {
		if t.Fields == nil {
			m.Types[i].Fields = []FieldEntry{}
		}
		if prev, ok := seen[t.Tag]; ok {
			return nil, fmt.Errorf("invalid manifest: tag %d listed for both %s and %s", t.Tag, prev, t.Name)
		}
		seen[t.Tag] = t.Name
	}
	return &m, nil
}
