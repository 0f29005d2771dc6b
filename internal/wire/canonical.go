package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders a payload as canonical JSON: object keys in
// UTF-16 code unit order, NFC strings, no HTML escaping. Field keys are the
// slot names from the schema ("slot_N" when the schema does not know the
// slot). References render as {"ref":id}.
//
// The output is a stable, human-readable view of a payload. It is used by
// inspect and by golden tests; it is not the wire format.
func MarshalCanonical(p *Payload, schema Schema) ([]byte, error) {
	records := make([][]byte, 0, len(p.Records))
	for _, rec := range p.Records {
		b, err := MarshalRecordCanonical(rec, schema)
		if err != nil {
			return nil, err
		}
		records = append(records, b)
	}

	roots := make([][]byte, len(p.Roots))
	for i, id := range p.Roots {
		roots[i] = strconv.AppendInt(nil, int64(id), 10)
	}

	obj := canonicalObject{
		{"version", strconv.AppendInt(nil, int64(p.Version), 10)},
		{"roots", canonicalArray(roots)},
		{"records", canonicalArray(records)},
	}
	return obj.marshal()
}

// MarshalRecordCanonical renders one record as canonical JSON.
func MarshalRecordCanonical(rec *Record, schema Schema) ([]byte, error) {
	var layout *Layout
	if schema != nil {
		layout, _ = schema.Layout(rec.Tag)
	}

	fields, err := marshalFields(rec.Fields, layout, schema)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}

	obj := canonicalObject{
		{"id", strconv.AppendInt(nil, int64(rec.ID), 10)},
		{"tag", strconv.AppendInt(nil, int64(rec.Tag), 10)},
		{"fields", fields},
	}
	if layout != nil {
		name, err := marshalCanonicalString(layout.Name)
		if err != nil {
			return nil, err
		}
		obj = append(obj, canonicalMember{"type", name})
	}
	return obj.marshal()
}

func marshalFields(fields Fields, layout *Layout, schema Schema) ([]byte, error) {
	obj := make(canonicalObject, 0, len(fields))
	for _, f := range fields {
		key := fmt.Sprintf("slot_%d", f.Slot)
		var fd FieldDescriptor
		known := false
		if layout != nil {
			fd, known = layout.Field(f.Slot)
			if known {
				key = fd.Name
			}
		}

		var elem *Layout
		if known && fd.Kind == KindEmbedded && schema != nil {
			elem, _ = schema.Layout(fd.Elem)
		}

		val, err := marshalValue(f.Value, elem, schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		obj = append(obj, canonicalMember{key, val})
	}
	return obj.marshal()
}

func marshalValue(v Value, elem *Layout, schema Schema) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		return strconv.AppendBool(nil, bool(val)), nil
	case Int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case Float:
		return marshalFloat(float64(val), 64)
	case String:
		return marshalCanonicalString(string(val))
	case Bytes:
		return marshalCanonicalString(base64.StdEncoding.EncodeToString(val))
	case Float32s:
		elems := make([][]byte, len(val))
		for i, f := range val {
			b, err := marshalFloat(float64(f), 32)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = b
		}
		return canonicalArray(elems), nil
	case Int32s:
		elems := make([][]byte, len(val))
		for i, n := range val {
			elems[i] = strconv.AppendInt(nil, int64(n), 10)
		}
		return canonicalArray(elems), nil
	case Ref:
		return marshalRef(ReferenceID(val)), nil
	case Refs:
		elems := make([][]byte, len(val))
		for i, id := range val {
			elems[i] = marshalRef(id)
		}
		return canonicalArray(elems), nil
	case Embedded:
		return marshalFields(Fields(val), elem, schema)
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func marshalRef(id ReferenceID) []byte {
	b := append([]byte(nil), `{"ref":`...)
	b = strconv.AppendInt(b, int64(id), 10)
	return append(b, '}')
}

func marshalFloat(f float64, bitSize int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v", f)
	}
	return strconv.AppendFloat(nil, f, 'g', -1, bitSize), nil
}

// marshalCanonicalString produces a JSON string with NFC normalization and
// no HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

type canonicalMember struct {
	key string
	raw []byte
}

type canonicalObject []canonicalMember

func (o canonicalObject) marshal() ([]byte, error) {
	sorted := slices.Clone(o)
	slices.SortFunc(sorted, func(a, b canonicalMember) int {
		return compareUTF16(a.key, b.key)
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalCanonicalString(m.key)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func canonicalArray(elems [][]byte) []byte {
	return append(append([]byte{'['}, bytes.Join(elems, []byte{','})...), ']')
}

// compareUTF16 orders strings by UTF-16 code units (RFC 8785 key order).
// Go compares strings by UTF-8 bytes, which differs above U+E000.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
