package surrogate

import (
	"reflect"
	"slices"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/wire"
)

// Mapping is a declarative surrogate for live type *T: an explicit slot
// table of typed accessors. Mappings are versioned by their slots; adding a
// slot is compatible, reusing one with a different kind is not.
type Mapping[T any] struct {
	desc     wire.TypeDescriptor
	newFn    func() *T
	own      []Binding[T]
	bindings []Binding[T] // inherited + own, sorted by slot
}

// NewMapping declares a type. newFn allocates a zero live object; pass nil
// for abstract types that are never allocated by tag.
func NewMapping[T any](tag wire.Tag, name string, newFn func() *T, bindings ...Binding[T]) *Mapping[T] {
	m := &Mapping[T]{
		desc:  wire.TypeDescriptor{Tag: tag, Name: name},
		newFn: newFn,
		own:   bindings,
	}
	m.rebuild(nil)
	return m
}

// Inherited is a base mapping's binding set lifted onto a subtype.
type Inherited[T any] struct {
	base     wire.Tag
	bindings []Binding[T]
}

// Inherit lifts every binding of base (including base's own ancestors) onto
// subtype T. up returns the embedded base value of a T.
func Inherit[B, T any](base *Mapping[B], up func(*T) *B) Inherited[T] {
	out := make([]Binding[T], len(base.bindings))
	for i, b := range base.bindings {
		out[i] = lift(b, up)
	}
	return Inherited[T]{base: base.desc.Tag, bindings: out}
}

func lift[B, T any](b Binding[B], up func(*T) *B) Binding[T] {
	l := Binding[T]{
		Field: b.Field,
		read: func(ctx *ReadContext, obj *T) (wire.Value, error) {
			return b.read(ctx, up(obj))
		},
		write: func(ctx *WriteContext, obj *T, v wire.Value) error {
			return b.write(ctx, up(obj), v)
		},
	}
	if b.deps != nil {
		l.deps = func(ctx *DepsContext, obj *T) {
			b.deps(ctx, up(obj))
		}
	}
	return l
}

// Extends makes m a subtype of the inherited base.
func (m *Mapping[T]) Extends(in Inherited[T]) *Mapping[T] {
	m.desc.Base = in.base
	m.rebuild(in.bindings)
	return m
}

func (m *Mapping[T]) rebuild(inherited []Binding[T]) {
	m.desc.Fields = make([]wire.FieldDescriptor, len(m.own))
	for i, b := range m.own {
		m.desc.Fields[i] = b.Field
	}
	slices.SortFunc(m.desc.Fields, func(a, b wire.FieldDescriptor) int {
		return int(a.Slot) - int(b.Slot)
	})

	m.bindings = append(slices.Clone(inherited), m.own...)
	slices.SortStableFunc(m.bindings, func(a, b Binding[T]) int {
		return int(a.Field.Slot) - int(b.Field.Slot)
	})
}

// Tag returns the mapping's type tag.
func (m *Mapping[T]) Tag() wire.Tag { return m.desc.Tag }

// Abstract reports whether the mapping has no allocator.
func (m *Mapping[T]) Abstract() bool { return m.newFn == nil }

// Descriptor implements Type.
func (m *Mapping[T]) Descriptor() wire.TypeDescriptor {
	d := m.desc
	d.Fields = slices.Clone(m.desc.Fields)
	return d
}

// New implements Type.
func (m *Mapping[T]) New() any {
	if m.newFn == nil {
		return nil
	}
	return m.newFn()
}

// LiveType implements Type.
func (m *Mapping[T]) LiveType() reflect.Type {
	return reflect.TypeFor[*T]()
}

func (m *Mapping[T]) cast(obj any, rec *wire.Record) (*T, error) {
	o, ok := obj.(*T)
	if !ok || o == nil {
		return nil, wire.NewTypeMismatch(rec.ID, rec.Tag, "live object %T is not %s", obj, m.desc.Name)
	}
	return o, nil
}

// ReadFrom implements Surrogate. Every slot in the chain is written, in
// slot order.
func (m *Mapping[T]) ReadFrom(ctx *ReadContext, obj any, rec *wire.Record) error {
	o, err := m.cast(obj, rec)
	if err != nil {
		return err
	}
	rec.Tag = m.desc.Tag
	for _, b := range m.bindings {
		v, err := b.read(ctx, o)
		if err != nil {
			return withRecord(err, rec)
		}
		rec.Fields.Set(b.Field.Slot, v)
	}
	return nil
}

// WriteTo implements Surrogate. A nil obj is allocated with the mapping's
// allocator. Slots missing from rec leave their field untouched.
func (m *Mapping[T]) WriteTo(ctx *WriteContext, rec *wire.Record, obj any) (any, error) {
	if rec.Tag != m.desc.Tag {
		return nil, wire.NewTypeMismatch(rec.ID, rec.Tag, "record is not a %s (tag %d)", m.desc.Name, m.desc.Tag)
	}
	if identity.IsNil(obj) {
		if m.newFn == nil {
			return nil, wire.NewTypeMismatch(rec.ID, rec.Tag, "%s is abstract and cannot be allocated", m.desc.Name)
		}
		obj = m.newFn()
	}
	o, err := m.cast(obj, rec)
	if err != nil {
		return nil, err
	}

	for _, b := range m.bindings {
		if !ctx.Phase.writes(b.Field.Kind) {
			continue
		}
		v, ok := rec.Fields.Get(b.Field.Slot)
		if !ok {
			continue
		}
		if v == nil || v.Kind() != b.Field.Kind {
			return nil, wire.NewTypeMismatch(rec.ID, rec.Tag,
				"slot %d (%s): got %s, want %s", b.Field.Slot, b.Field.Name, kindOf(v), b.Field.Kind)
		}
		if err := b.write(ctx, o, v); err != nil {
			return nil, withRecord(err, rec)
		}
	}
	return o, nil
}

// GetDeps implements Surrogate.
func (m *Mapping[T]) GetDeps(ctx *DepsContext, rec *wire.Record) {
	rec.Fields.References(func(_ wire.Slot, id wire.ReferenceID) {
		ctx.Add(id)
	})
}

// GetDepsFrom implements Surrogate.
func (m *Mapping[T]) GetDepsFrom(ctx *DepsContext, obj any) error {
	o, err := m.cast(obj, &wire.Record{Tag: m.desc.Tag})
	if err != nil {
		return err
	}
	for _, b := range m.bindings {
		if b.deps != nil {
			b.deps(ctx, o)
		}
	}
	return nil
}

func kindOf(v wire.Value) wire.Kind {
	if v == nil {
		return wire.KindInvalid
	}
	return v.Kind()
}

// withRecord fills in record context on errors raised below the record
// level.
func withRecord(err error, rec *wire.Record) error {
	we, ok := err.(*wire.Error)
	if !ok {
		return err
	}
	if we.ID == wire.NoReference {
		we.ID = rec.ID
	}
	if we.Tag == 0 {
		we.Tag = rec.Tag
	}
	return err
}
