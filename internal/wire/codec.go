package wire

import (
	"bytes"
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Magic prefixes every payload.
var Magic = []byte("RTSL")

// Top-level payload fields.
const (
	payloadVersion protowire.Number = 1
	payloadRoots   protowire.Number = 2
	payloadRecord  protowire.Number = 3
)

// Record envelope fields. The body is a nested message whose field numbers
// are the record's slots.
const (
	recordID   protowire.Number = 1
	recordTag  protowire.Number = 2
	recordBody protowire.Number = 3
)

// ValidSlot reports whether s can be used as a slot (a valid protobuf field
// number outside the reserved range).
func ValidSlot(s Slot) bool {
	return protowire.Number(s).IsValid()
}

// wireType returns the protowire type used for values of kind k.
func wireType(k Kind) protowire.Type {
	switch k {
	case KindBool, KindInt, KindRef:
		return protowire.VarintType
	case KindFloat:
		return protowire.Fixed64Type
	default:
		return protowire.BytesType
	}
}

// Encode writes a payload as a length-prefixed sequence of tagged records.
//
// Layout:
//
//	"RTSL" 1:version 2:roots(packed) 3:record...
//	record := 1:id 2:tag 3:body
//	body   := slot:value...
//
// Encoding needs no schema: each value's kind determines its wire type.
func Encode(p *Payload) ([]byte, error) {
	version := p.Version
	if version == 0 {
		version = FormatVersion
	}

	b := make([]byte, 0, 64+32*len(p.Records))
	b = append(b, Magic...)
	b = protowire.AppendTag(b, payloadVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(version))

	if len(p.Roots) > 0 {
		b = protowire.AppendTag(b, payloadRoots, protowire.BytesType)
		b = protowire.AppendBytes(b, appendRefs(nil, p.Roots))
	}

	for _, rec := range p.Records {
		body, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, payloadRecord, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b, nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	if rec.ID <= NoReference {
		return nil, Formatf("record id must be positive, got %d", rec.ID)
	}
	if rec.Tag <= 0 {
		return nil, &Error{Code: ErrCodeFormat, Message: "record tag must be positive", ID: rec.ID, Tag: rec.Tag}
	}

	body, err := appendFields(nil, rec.Fields)
	if err != nil {
		if we, ok := err.(*Error); ok {
			we.ID, we.Tag = rec.ID, rec.Tag
		}
		return nil, err
	}

	var b []byte
	b = protowire.AppendTag(b, recordID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.ID))
	b = protowire.AppendTag(b, recordTag, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Tag))
	b = protowire.AppendTag(b, recordBody, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b, nil
}

func appendFields(b []byte, fields Fields) ([]byte, error) {
	for _, f := range fields {
		if !ValidSlot(f.Slot) {
			return nil, Formatf("invalid slot %d", f.Slot)
		}
		var err error
		b, err = appendValue(b, protowire.Number(f.Slot), f.Value)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendValue(b []byte, num protowire.Number, v Value) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(bool(val))), nil
	case Int:
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(val))), nil
	case Ref:
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(val))), nil
	case Float:
		b = protowire.AppendTag(b, num, protowire.Fixed64Type)
		return protowire.AppendFixed64(b, math.Float64bits(float64(val))), nil
	case String:
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendString(b, string(val)), nil
	case Bytes:
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, val), nil
	case Float32s:
		raw, err := binary.Append(nil, binary.LittleEndian, []float32(val))
		if err != nil {
			return nil, Formatf("slot %d: %v", num, err)
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, raw), nil
	case Int32s:
		raw, err := binary.Append(nil, binary.LittleEndian, []int32(val))
		if err != nil {
			return nil, Formatf("slot %d: %v", num, err)
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, raw), nil
	case Refs:
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, appendRefs(nil, val)), nil
	case Embedded:
		body, err := appendFields(nil, Fields(val))
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendBytes(b, body), nil
	case nil:
		return nil, Formatf("slot %d: nil value", num)
	default:
		return nil, Formatf("slot %d: unsupported value %T", num, v)
	}
}

func appendRefs(b []byte, ids []ReferenceID) []byte {
	for _, id := range ids {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(id)))
	}
	return b
}

func consumeRefs(raw []byte) ([]ReferenceID, error) {
	var ids []ReferenceID
	for len(raw) > 0 {
		v, n := protowire.ConsumeVarint(raw)
		if n < 0 {
			return nil, Formatf("packed refs: %v", protowire.ParseError(n))
		}
		ids = append(ids, ReferenceID(protowire.DecodeZigZag(v)))
		raw = raw[n:]
	}
	return ids, nil
}

// Decode parses a payload. The schema resolves each record's tag to the
// layout that says which slots exist and how to read them.
//
// Unknown top-level fields and unknown slots are skipped. Slots missing from
// a body take the declared default. Any structural problem is a FORMAT_ERROR.
func Decode(data []byte, schema Schema) (*Payload, error) {
	if !bytes.HasPrefix(data, Magic) {
		return nil, Formatf("missing %q payload header", Magic)
	}
	b := data[len(Magic):]

	var (
		version uint64
		roots   []ReferenceID
		records []*Record
		seen    = make(map[ReferenceID]bool)
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, Formatf("payload: %v", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case payloadVersion:
			if typ != protowire.VarintType {
				return nil, Formatf("payload version: unexpected wire type %d", typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, Formatf("payload version: %v", protowire.ParseError(n))
			}
			version = v
			b = b[n:]

		case payloadRoots:
			if typ != protowire.BytesType {
				return nil, Formatf("payload roots: unexpected wire type %d", typ)
			}
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, Formatf("payload roots: %v", protowire.ParseError(n))
			}
			ids, err := consumeRefs(raw)
			if err != nil {
				return nil, err
			}
			roots = append(roots, ids...)
			b = b[n:]

		case payloadRecord:
			if typ != protowire.BytesType {
				return nil, Formatf("payload record: unexpected wire type %d", typ)
			}
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, Formatf("payload record: %v", protowire.ParseError(n))
			}
			rec, err := decodeRecord(raw, schema)
			if err != nil {
				return nil, err
			}
			if seen[rec.ID] {
				return nil, &Error{Code: ErrCodeFormat, Message: "duplicate record id", ID: rec.ID, Tag: rec.Tag}
			}
			seen[rec.ID] = true
			records = append(records, rec)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, Formatf("payload field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if version == 0 {
		return nil, Formatf("missing format version")
	}
	if version > FormatVersion {
		return nil, Formatf("unsupported format version %d (max %d)", version, FormatVersion)
	}

	p := NewPayload(roots, records)
	p.Version = int(version)
	return p, nil
}

func decodeRecord(raw []byte, schema Schema) (*Record, error) {
	var (
		id, tag uint64
		body    []byte
	)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, Formatf("record: %v", protowire.ParseError(n))
		}
		raw = raw[n:]

		switch {
		case num == recordID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return nil, Formatf("record id: %v", protowire.ParseError(n))
			}
			id = v
			raw = raw[n:]
		case num == recordTag && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return nil, Formatf("record tag: %v", protowire.ParseError(n))
			}
			tag = v
			raw = raw[n:]
		case num == recordBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return nil, Formatf("record body: %v", protowire.ParseError(n))
			}
			body = v
			raw = raw[n:]
		case num == recordID || num == recordTag || num == recordBody:
			return nil, Formatf("record field %d: unexpected wire type %d", num, typ)
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return nil, Formatf("record field %d: %v", num, protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}

	if id == 0 || id > math.MaxInt64 {
		return nil, Formatf("record id out of range: %d", id)
	}
	if tag == 0 || tag > math.MaxInt32 {
		return nil, &Error{Code: ErrCodeFormat, Message: "record tag out of range", ID: ReferenceID(id)}
	}

	rec := &Record{ID: ReferenceID(id), Tag: Tag(tag)}
	layout, ok := schema.Layout(rec.Tag)
	if !ok {
		return nil, &Error{Code: ErrCodeFormat, Message: "unknown type tag", ID: rec.ID, Tag: rec.Tag}
	}
	if layout.Value {
		return nil, &Error{Code: ErrCodeFormat, Message: "value type cannot be a record", ID: rec.ID, Tag: rec.Tag}
	}

	fields, err := decodeFields(body, layout, schema)
	if err != nil {
		if we, ok := err.(*Error); ok {
			we.ID, we.Tag = rec.ID, rec.Tag
		}
		return nil, err
	}
	rec.Fields = fields
	return rec, nil
}

func decodeFields(b []byte, layout *Layout, schema Schema) (Fields, error) {
	fields := make(Fields, 0, len(layout.Fields))
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, Formatf("%s body: %v", layout.Name, protowire.ParseError(n))
		}
		b = b[n:]

		fd, ok := layout.Field(Slot(num))
		if !ok {
			// Unknown slot: written by a newer or older type version.
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, Formatf("%s slot %d: %v", layout.Name, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if typ != wireType(fd.Kind) {
			return nil, Formatf("%s.%s (slot %d): wire type %d does not match kind %s",
				layout.Name, fd.Name, fd.Slot, typ, fd.Kind)
		}

		v, n, err := consumeValue(b, fd, schema)
		if err != nil {
			return nil, err
		}
		fields.Set(fd.Slot, v)
		b = b[n:]
	}

	for _, fd := range layout.Fields {
		if _, ok := fields.Get(fd.Slot); ok {
			continue
		}
		v, err := defaultFor(fd, schema)
		if err != nil {
			return nil, err
		}
		fields.Set(fd.Slot, v)
	}
	return fields, nil
}

func defaultFor(fd FieldDescriptor, schema Schema) (Value, error) {
	if fd.Default != nil || fd.Kind != KindEmbedded {
		return fd.DefaultValue(), nil
	}
	elem, ok := schema.Layout(fd.Elem)
	if !ok {
		return nil, Formatf("slot %d: unknown value type tag %d", fd.Slot, fd.Elem)
	}
	fields, err := decodeFields(nil, elem, schema)
	if err != nil {
		return nil, err
	}
	return Embedded(fields), nil
}

func consumeValue(b []byte, fd FieldDescriptor, schema Schema) (Value, int, error) {
	switch fd.Kind {
	case KindBool, KindInt, KindRef:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, Formatf("slot %d: %v", fd.Slot, protowire.ParseError(n))
		}
		switch fd.Kind {
		case KindBool:
			return Bool(protowire.DecodeBool(v)), n, nil
		case KindInt:
			return Int(protowire.DecodeZigZag(v)), n, nil
		default:
			return Ref(protowire.DecodeZigZag(v)), n, nil
		}

	case KindFloat:
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, 0, Formatf("slot %d: %v", fd.Slot, protowire.ParseError(n))
		}
		return Float(math.Float64frombits(v)), n, nil
	}

	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, Formatf("slot %d: %v", fd.Slot, protowire.ParseError(n))
	}

	switch fd.Kind {
	case KindString:
		return String(raw), n, nil

	case KindBytes:
		if len(raw) == 0 {
			return Bytes(nil), n, nil
		}
		return Bytes(bytes.Clone(raw)), n, nil

	case KindFloat32s:
		if len(raw)%4 != 0 {
			return nil, 0, Formatf("slot %d: float32 buffer length %d not a multiple of 4", fd.Slot, len(raw))
		}
		if len(raw) == 0 {
			return Float32s(nil), n, nil
		}
		out := make([]float32, len(raw)/4)
		if _, err := binary.Decode(raw, binary.LittleEndian, out); err != nil {
			return nil, 0, Formatf("slot %d: %v", fd.Slot, err)
		}
		return Float32s(out), n, nil

	case KindInt32s:
		if len(raw)%4 != 0 {
			return nil, 0, Formatf("slot %d: int32 buffer length %d not a multiple of 4", fd.Slot, len(raw))
		}
		if len(raw) == 0 {
			return Int32s(nil), n, nil
		}
		out := make([]int32, len(raw)/4)
		if _, err := binary.Decode(raw, binary.LittleEndian, out); err != nil {
			return nil, 0, Formatf("slot %d: %v", fd.Slot, err)
		}
		return Int32s(out), n, nil

	case KindRefs:
		ids, err := consumeRefs(raw)
		if err != nil {
			return nil, 0, err
		}
		return Refs(ids), n, nil

	case KindEmbedded:
		elem, ok := schema.Layout(fd.Elem)
		if !ok {
			return nil, 0, Formatf("slot %d: unknown value type tag %d", fd.Slot, fd.Elem)
		}
		fields, err := decodeFields(raw, elem, schema)
		if err != nil {
			return nil, 0, err
		}
		return Embedded(fields), n, nil
	}

	return nil, 0, Formatf("slot %d: unsupported kind %s", fd.Slot, fd.Kind)
}
