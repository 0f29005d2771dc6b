package surrogate

import (
	"github.com/roach88/rtsl/internal/wire"
)

// ValueType is an embeddable value surrogate (vectors, colors). Its slots
// are written inline into the owning record. Value types hold no
// references.
type ValueType[V any] struct {
	desc     wire.TypeDescriptor
	bindings []Binding[V]
}

// NewValueType declares a value type. Bindings must be non-reference.
func NewValueType[V any](tag wire.Tag, name string, bindings ...Binding[V]) *ValueType[V] {
	vt := &ValueType[V]{
		desc:     wire.TypeDescriptor{Tag: tag, Name: name, Value: true},
		bindings: bindings,
	}
	for _, b := range bindings {
		vt.desc.Fields = append(vt.desc.Fields, b.Field)
	}
	return vt
}

// Tag returns the value type's tag.
func (vt *ValueType[V]) Tag() wire.Tag { return vt.desc.Tag }

// Descriptor implements ValueDescriptor.
func (vt *ValueType[V]) Descriptor() wire.TypeDescriptor {
	d := vt.desc
	d.Fields = append([]wire.FieldDescriptor(nil), vt.desc.Fields...)
	return d
}

// Encode converts v to its embedded slots.
func (vt *ValueType[V]) Encode(v V) (wire.Embedded, error) {
	var fields wire.Fields
	for _, b := range vt.bindings {
		if b.Field.Kind.IsReference() {
			return nil, wire.NewTypeMismatch(wire.NoReference, vt.desc.Tag,
				"value type %s cannot hold reference slot %d", vt.desc.Name, b.Field.Slot)
		}
		val, err := b.read(nil, &v)
		if err != nil {
			return nil, err
		}
		fields.Set(b.Field.Slot, val)
	}
	return wire.Embedded(fields), nil
}

// Decode applies embedded slots to *into. Missing slots leave their field
// untouched.
func (vt *ValueType[V]) Decode(e wire.Embedded, into *V) error {
	fields := wire.Fields(e)
	for _, b := range vt.bindings {
		val, ok := fields.Get(b.Field.Slot)
		if !ok {
			continue
		}
		if val == nil || val.Kind() != b.Field.Kind {
			return wire.NewTypeMismatch(wire.NoReference, vt.desc.Tag,
				"%s slot %d (%s): got %s, want %s", vt.desc.Name, b.Field.Slot, b.Field.Name, kindOf(val), b.Field.Kind)
		}
		if err := b.write(nil, into, val); err != nil {
			return err
		}
	}
	return nil
}
