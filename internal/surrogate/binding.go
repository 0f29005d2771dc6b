package surrogate

import (
	"reflect"
	"slices"

	"github.com/roach88/rtsl/internal/wire"
)

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32
}

type float interface {
	~float32 | ~float64
}

// Binding connects one wire slot to one field of live type T.
// Build bindings with the constructors in this file.
type Binding[T any] struct {
	Field wire.FieldDescriptor

	read  func(ctx *ReadContext, obj *T) (wire.Value, error)
	write func(ctx *WriteContext, obj *T, v wire.Value) error
	deps  func(ctx *DepsContext, obj *T)
}

// Default sets the value decoders use when the slot is missing from a body.
func (b Binding[T]) Default(v wire.Value) Binding[T] {
	b.Field.Default = v
	return b
}

func field(slot wire.Slot, name string, kind wire.Kind) wire.FieldDescriptor {
	return wire.FieldDescriptor{Slot: slot, Name: name, Kind: kind}
}

// Bool binds a boolean field.
func Bool[T any](slot wire.Slot, name string, get func(*T) bool, set func(*T, bool)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindBool),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Bool(get(obj)), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, bool(v.(wire.Bool)))
			return nil
		},
	}
}

// Int binds any integer field. Values widen to int64 on the wire; a
// wire value the field cannot hold is a type mismatch.
func Int[T any, N integer](slot wire.Slot, name string, get func(*T) N, set func(*T, N)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindInt),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Int(int64(get(obj))), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			x := int64(v.(wire.Int))
			n := N(x)
			if int64(n) != x || (x < 0) != (n < 0) {
				return wire.NewTypeMismatch(wire.NoReference, 0,
					"slot %d: %d does not fit %s", slot, x, reflect.TypeFor[N]())
			}
			set(obj, n)
			return nil
		},
	}
}

// Float binds a float32 or float64 field.
func Float[T any, F float](slot wire.Slot, name string, get func(*T) F, set func(*T, F)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindFloat),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Float(float64(get(obj))), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, F(v.(wire.Float)))
			return nil
		},
	}
}

// String binds a string field.
func String[T any](slot wire.Slot, name string, get func(*T) string, set func(*T, string)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindString),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.String(get(obj)), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, string(v.(wire.String)))
			return nil
		},
	}
}

// Bytes binds an opaque byte buffer. Both directions copy.
func Bytes[T any](slot wire.Slot, name string, get func(*T) []byte, set func(*T, []byte)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindBytes),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Bytes(slices.Clone(get(obj))), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, slices.Clone([]byte(v.(wire.Bytes))))
			return nil
		},
	}
}

// Float32s binds a bulk float buffer (vertices, heights). The buffer is
// copied as one flat array.
func Float32s[T any](slot wire.Slot, name string, get func(*T) []float32, set func(*T, []float32)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindFloat32s),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Float32s(slices.Clone(get(obj))), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, slices.Clone([]float32(v.(wire.Float32s))))
			return nil
		},
	}
}

// Int32s binds a bulk integer buffer (triangle indices).
func Int32s[T any](slot wire.Slot, name string, get func(*T) []int32, set func(*T, []int32)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindInt32s),
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			return wire.Int32s(slices.Clone(get(obj))), nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			set(obj, slices.Clone([]int32(v.(wire.Int32s))))
			return nil
		},
	}
}

// Ref binds a single reference. R is the field's type: a pointer to a live
// type, or an interface several live types implement. A dangling reference
// clears the field, so a reused object never keeps its old target.
func Ref[T, R any](slot wire.Slot, name string, get func(*T) R, set func(*T, R)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindRef),
		read: func(ctx *ReadContext, obj *T) (wire.Value, error) {
			return wire.Ref(ctx.ToID(get(obj))), nil
		},
		write: func(ctx *WriteContext, obj *T, v wire.Value) error {
			id := wire.ReferenceID(v.(wire.Ref))
			target, ok, err := ctx.FromID(id)
			if err != nil {
				return err
			}
			if !ok {
				var zero R
				set(obj, zero)
				return nil
			}
			r, err := asRef[R](slot, id, target)
			if err != nil {
				return err
			}
			set(obj, r)
			return nil
		},
		deps: func(ctx *DepsContext, obj *T) {
			ctx.AddObject(get(obj))
		},
	}
}

// Refs binds an ordered list of references. Null elements round-trip as
// nil; dangling elements are dropped.
func Refs[T, R any](slot wire.Slot, name string, get func(*T) []R, set func(*T, []R)) Binding[T] {
	return Binding[T]{
		Field: field(slot, name, wire.KindRefs),
		read: func(ctx *ReadContext, obj *T) (wire.Value, error) {
			list := get(obj)
			if len(list) == 0 {
				return wire.Refs(nil), nil
			}
			ids := make(wire.Refs, len(list))
			for i, e := range list {
				ids[i] = ctx.ToID(e)
			}
			return ids, nil
		},
		write: func(ctx *WriteContext, obj *T, v wire.Value) error {
			ids := v.(wire.Refs)
			if len(ids) == 0 {
				set(obj, nil)
				return nil
			}
			out := make([]R, 0, len(ids))
			for _, id := range ids {
				target, ok, err := ctx.FromID(id)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				r, err := asRef[R](slot, id, target)
				if err != nil {
					return err
				}
				out = append(out, r)
			}
			set(obj, out)
			return nil
		},
		deps: func(ctx *DepsContext, obj *T) {
			for _, e := range get(obj) {
				ctx.AddObject(e)
			}
		},
	}
}

func asRef[R any](slot wire.Slot, id wire.ReferenceID, target any) (R, error) {
	var zero R
	if target == nil {
		return zero, nil
	}
	r, ok := target.(R)
	if !ok {
		return zero, wire.NewTypeMismatch(wire.NoReference, 0,
			"slot %d: object %d is %T, not %s", slot, id, target, reflect.TypeFor[R]())
	}
	return r, nil
}

// Embedded binds a field holding a value type V, stored as nested slots.
func Embedded[T, V any](slot wire.Slot, name string, vt *ValueType[V], get func(*T) V, set func(*T, V)) Binding[T] {
	f := field(slot, name, wire.KindEmbedded)
	f.Elem = vt.Tag()
	return Binding[T]{
		Field: f,
		read: func(_ *ReadContext, obj *T) (wire.Value, error) {
			e, err := vt.Encode(get(obj))
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		write: func(_ *WriteContext, obj *T, v wire.Value) error {
			val := get(obj)
			if err := vt.Decode(v.(wire.Embedded), &val); err != nil {
				return err
			}
			set(obj, val)
			return nil
		},
	}
}
