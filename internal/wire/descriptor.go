package wire

import (
	"slices"
)

// TypeDescriptor is the static metadata of one persistent type.
type TypeDescriptor struct {
	Tag    Tag               `json:"tag"`
	Base   Tag               `json:"base,omitempty"` // 0 for root types
	Name   string            `json:"name"`
	Value  bool              `json:"value,omitempty"` // embeddable value type, never a record
	Fields []FieldDescriptor `json:"fields"`          // own fields only, ordered by slot
}

// FieldDescriptor describes one wire slot.
type FieldDescriptor struct {
	Slot    Slot   `json:"slot"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Default Value  `json:"-"`              // nil means Zero(Kind)
	Elem    Tag    `json:"elem,omitempty"` // value type tag for KindEmbedded
}

// DefaultValue returns the declared default, falling back to the zero value.
func (f FieldDescriptor) DefaultValue() Value {
	if f.Default != nil {
		return f.Default
	}
	return Zero(f.Kind)
}

// Layout is the flattened field list of a type and all its ancestors.
type Layout struct {
	Tag    Tag
	Name   string
	Value  bool
	Fields []FieldDescriptor // sorted by slot

	bySlot map[Slot]int
}

// NewLayout builds a layout from a field list. Fields are sorted by slot.
func NewLayout(tag Tag, name string, value bool, fields []FieldDescriptor) *Layout {
	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b FieldDescriptor) int {
		return int(a.Slot) - int(b.Slot)
	})
	l := &Layout{
		Tag:    tag,
		Name:   name,
		Value:  value,
		Fields: sorted,
		bySlot: make(map[Slot]int, len(sorted)),
	}
	for i, f := range sorted {
		l.bySlot[f.Slot] = i
	}
	return l
}

// Field returns the descriptor of slot.
func (l *Layout) Field(slot Slot) (FieldDescriptor, bool) {
	i, ok := l.bySlot[slot]
	if !ok {
		return FieldDescriptor{}, false
	}
	return l.Fields[i], true
}

// Schema resolves tags to layouts. The codec consults it to decode bodies.
type Schema interface {
	Layout(tag Tag) (*Layout, bool)
}
