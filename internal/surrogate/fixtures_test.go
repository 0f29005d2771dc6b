package surrogate

import (
	"github.com/roach88/rtsl/internal/wire"
)

// Test live model: an abstract base, a concrete node with every binding
// kind, and a leaf that overrides ReadFrom.

type vec2 struct {
	X, Y float32
}

type base struct {
	Name  string
	Flags int32
}

type node struct {
	base
	Active bool
	Weight float64
	Pos    vec2
	Data   []byte
	Verts  []float32
	Tris   []int32
	Next   *node
	Items  []*node
	Other  *other
}

type other struct {
	base
	Label string
}

type special struct {
	node
	Extra int
}

const (
	tagBase    wire.Tag = 1
	tagNode    wire.Tag = 100
	tagOther   wire.Tag = 101
	tagSpecial wire.Tag = 102
	tagVec2    wire.Tag = 500
)

var vec2Type = NewValueType(tagVec2, "Vec2",
	Float(1, "x", func(v *vec2) float32 { return v.X }, func(v *vec2, x float32) { v.X = x }),
	Float(2, "y", func(v *vec2) float32 { return v.Y }, func(v *vec2, y float32) { v.Y = y }),
)

func baseMapping() *Mapping[base] {
	return NewMapping[base](tagBase, "Base", nil,
		String(1, "name", func(b *base) string { return b.Name }, func(b *base, s string) { b.Name = s }),
		Int(2, "flags", func(b *base) int32 { return b.Flags }, func(b *base, n int32) { b.Flags = n }),
	)
}

func nodeMapping(bm *Mapping[base]) *Mapping[node] {
	return NewMapping(tagNode, "Node", func() *node { return new(node) },
		Bool(256, "active", func(n *node) bool { return n.Active }, func(n *node, b bool) { n.Active = b }).Default(wire.Bool(true)),
		Float(257, "weight", func(n *node) float64 { return n.Weight }, func(n *node, f float64) { n.Weight = f }),
		Embedded(258, "pos", vec2Type, func(n *node) vec2 { return n.Pos }, func(n *node, v vec2) { n.Pos = v }),
		Bytes(259, "data", func(n *node) []byte { return n.Data }, func(n *node, b []byte) { n.Data = b }),
		Float32s(260, "verts", func(n *node) []float32 { return n.Verts }, func(n *node, v []float32) { n.Verts = v }),
		Int32s(261, "tris", func(n *node) []int32 { return n.Tris }, func(n *node, v []int32) { n.Tris = v }),
		Ref(262, "next", func(n *node) *node { return n.Next }, func(n *node, r *node) { n.Next = r }),
		Refs(263, "items", func(n *node) []*node { return n.Items }, func(n *node, r []*node) { n.Items = r }),
		Ref(264, "other", func(n *node) *other { return n.Other }, func(n *node, r *other) { n.Other = r }),
	).Extends(Inherit(bm, func(n *node) *base { return &n.base }))
}

func otherMapping(bm *Mapping[base]) *Mapping[other] {
	return NewMapping(tagOther, "Other", func() *other { return new(other) },
		String(256, "label", func(o *other) string { return o.Label }, func(o *other, s string) { o.Label = s }),
	).Extends(Inherit(bm, func(o *other) *base { return &o.base }))
}

// specialType overrides ReadFrom to record how many times it ran.
type specialType struct {
	*Mapping[special]
	reads int
}

func (s *specialType) ReadFrom(ctx *ReadContext, obj any, rec *wire.Record) error {
	s.reads++
	return s.Mapping.ReadFrom(ctx, obj, rec)
}

func newSpecialType(nm *Mapping[node]) *specialType {
	m := NewMapping(tagSpecial, "Special", func() *special { return new(special) },
		Int(512, "extra", func(s *special) int { return s.Extra }, func(s *special, n int) { s.Extra = n }),
	).Extends(Inherit(nm, func(s *special) *node { return &s.node }))
	return &specialType{Mapping: m}
}

type fixture struct {
	reg     *Registry
	base    *Mapping[base]
	node    *Mapping[node]
	other   *Mapping[other]
	special *specialType
}

func newFixture() *fixture {
	f := &fixture{reg: NewRegistry(), base: baseMapping()}
	f.node = nodeMapping(f.base)
	f.other = otherMapping(f.base)
	f.special = newSpecialType(f.node)
	f.reg.MustRegister(vec2Type, f.base, f.node, f.other, f.special)
	return f
}
