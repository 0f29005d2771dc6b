package wire

import (
	"fmt"
	"slices"
)

// ReferenceID identifies one record within a single payload.
// 0 means "no reference"; ids are only meaningful inside the pass that
// produced them.
type ReferenceID int64

// NoReference is the null reference.
const NoReference ReferenceID = 0

// Tag identifies a concrete persistent type. Tags are globally unique.
type Tag int32

// Slot identifies a field inside a record. Slots double as protobuf field
// numbers on the wire, so they must lie in [1, 2^29-1].
type Slot int32

// Kind is the wire kind of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindFloat32s
	KindInt32s
	KindRef
	KindRefs
	KindEmbedded
)

var kindNames = map[Kind]string{
	KindInvalid:  "invalid",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindFloat32s: "float32s",
	KindInt32s:   "int32s",
	KindRef:      "ref",
	KindRefs:     "refs",
	KindEmbedded: "embedded",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && k != KindInvalid {
			return k, true
		}
	}
	return KindInvalid, false
}

// IsReference reports whether values of this kind carry ReferenceIDs.
func (k Kind) IsReference() bool {
	return k == KindRef || k == KindRefs
}

// Valid reports whether k is a known, usable kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= KindEmbedded
}

// Value is a sealed interface over the wire value kinds.
// Only the types in this file implement it.
type Value interface {
	Kind() Kind
	wireValue()
}

// Bool is a boolean slot value.
type Bool bool

// Int is a signed integer slot value. Narrower host integers widen to it.
type Int int64

// Float is a floating point slot value.
type Float float64

// String is a UTF-8 string slot value.
type String string

// Bytes is an opaque byte buffer.
type Bytes []byte

// Float32s is a bulk float buffer, written as one flat little-endian array.
type Float32s []float32

// Int32s is a bulk integer buffer, written as one flat little-endian array.
type Int32s []int32

// Ref holds a single reference. Ref(0) is the null reference.
type Ref ReferenceID

// Refs holds an ordered list of references.
type Refs []ReferenceID

// Embedded holds the slots of an embedded value-type surrogate.
type Embedded Fields

func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (String) Kind() Kind   { return KindString }
func (Bytes) Kind() Kind    { return KindBytes }
func (Float32s) Kind() Kind { return KindFloat32s }
func (Int32s) Kind() Kind   { return KindInt32s }
func (Ref) Kind() Kind      { return KindRef }
func (Refs) Kind() Kind     { return KindRefs }
func (Embedded) Kind() Kind { return KindEmbedded }

func (Bool) wireValue()     {}
func (Int) wireValue()      {}
func (Float) wireValue()    {}
func (String) wireValue()   {}
func (Bytes) wireValue()    {}
func (Float32s) wireValue() {}
func (Int32s) wireValue()   {}
func (Ref) wireValue()      {}
func (Refs) wireValue()     {}
func (Embedded) wireValue() {}

// Zero returns the zero value of a kind. Embedded zero has no slots; the
// codec expands it with the value type's defaults.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindString:
		return String("")
	case KindBytes:
		return Bytes(nil)
	case KindFloat32s:
		return Float32s(nil)
	case KindInt32s:
		return Int32s(nil)
	case KindRef:
		return Ref(NoReference)
	case KindRefs:
		return Refs(nil)
	case KindEmbedded:
		return Embedded(nil)
	default:
		return nil
	}
}

// Field is one (slot, value) pair of a record.
type Field struct {
	Slot  Slot
	Value Value
}

// Fields is an ordered slot -> value mapping. It is kept sorted by slot so
// that two reads of the same object produce identical records.
type Fields []Field

// Get returns the value stored in slot.
func (f Fields) Get(slot Slot) (Value, bool) {
	i, ok := slices.BinarySearchFunc(f, slot, func(e Field, s Slot) int {
		return int(e.Slot) - int(s)
	})
	if !ok {
		return nil, false
	}
	return f[i].Value, true
}

// Set stores v in slot, replacing any previous value and keeping order.
func (f *Fields) Set(slot Slot, v Value) {
	i, ok := slices.BinarySearchFunc(*f, slot, func(e Field, s Slot) int {
		return int(e.Slot) - int(s)
	})
	if ok {
		(*f)[i].Value = v
		return
	}
	*f = slices.Insert(*f, i, Field{Slot: slot, Value: v})
}

// Delete removes slot if present.
func (f *Fields) Delete(slot Slot) {
	i, ok := slices.BinarySearchFunc(*f, slot, func(e Field, s Slot) int {
		return int(e.Slot) - int(s)
	})
	if ok {
		*f = slices.Delete(*f, i, i+1)
	}
}

// Slots returns the slots present, in ascending order.
func (f Fields) Slots() []Slot {
	slots := make([]Slot, len(f))
	for i, e := range f {
		slots[i] = e.Slot
	}
	return slots
}

// References calls fn for every non-zero reference held by the fields,
// including references nested inside embedded values.
func (f Fields) References(fn func(slot Slot, id ReferenceID)) {
	for _, e := range f {
		switch v := e.Value.(type) {
		case Ref:
			if v != Ref(NoReference) {
				fn(e.Slot, ReferenceID(v))
			}
		case Refs:
			for _, id := range v {
				if id != NoReference {
					fn(e.Slot, id)
				}
			}
		case Embedded:
			Fields(v).References(func(_ Slot, id ReferenceID) {
				fn(e.Slot, id)
			})
		}
	}
}
