package deps

import (
	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

type item struct {
	Name  string
	Ref   *item
	Items []*item
}

type leaf struct {
	Value int
}

const (
	tagItem wire.Tag = 10
	tagLeaf wire.Tag = 11

	slotName  wire.Slot = 1
	slotRef   wire.Slot = 2
	slotItems wire.Slot = 3
)

func newTypes() *surrogate.Registry {
	r := surrogate.NewRegistry()
	r.MustRegister(
		surrogate.NewMapping(tagItem, "Item", func() *item { return new(item) },
			surrogate.String(slotName, "name", func(i *item) string { return i.Name }, func(i *item, s string) { i.Name = s }),
			surrogate.Ref(slotRef, "ref", func(i *item) *item { return i.Ref }, func(i *item, r *item) { i.Ref = r }),
			surrogate.Refs(slotItems, "items", func(i *item) []*item { return i.Items }, func(i *item, r []*item) { i.Items = r }),
		),
		surrogate.NewMapping(tagLeaf, "Leaf", func() *leaf { return new(leaf) },
			surrogate.Int(1, "value", func(l *leaf) int { return l.Value }, func(l *leaf, n int) { l.Value = n }),
		),
	)
	return r
}

// rec builds an item record. ref 0 means no reference.
func rec(id wire.ReferenceID, name string, ref wire.ReferenceID, items ...wire.ReferenceID) *wire.Record {
	var f wire.Fields
	f.Set(slotName, wire.String(name))
	f.Set(slotRef, wire.Ref(ref))
	if len(items) > 0 {
		f.Set(slotItems, wire.Refs(items))
	}
	return &wire.Record{ID: id, Tag: tagItem, Fields: f}
}
