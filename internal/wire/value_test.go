package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsSetKeepsSlotOrder(t *testing.T) {
	var f Fields
	f.Set(5, Int(5))
	f.Set(1, Int(1))
	f.Set(3, Int(3))
	f.Set(3, Int(33))

	assert.Equal(t, []Slot{1, 3, 5}, f.Slots())
	v, ok := f.Get(3)
	require.True(t, ok)
	assert.Equal(t, Int(33), v)

	f.Delete(1)
	f.Delete(42)
	assert.Equal(t, []Slot{3, 5}, f.Slots())

	_, ok = f.Get(1)
	assert.False(t, ok)
}

func TestFieldsReferences(t *testing.T) {
	f := Fields{
		{Slot: 1, Value: Ref(4)},
		{Slot: 2, Value: Ref(NoReference)},
		{Slot: 3, Value: Refs{5, 0, 4}},
		{Slot: 4, Value: Embedded{{Slot: 1, Value: Ref(6)}}},
		{Slot: 5, Value: String("not a ref")},
	}

	type hit struct {
		slot Slot
		id   ReferenceID
	}
	var hits []hit
	f.References(func(slot Slot, id ReferenceID) {
		hits = append(hits, hit{slot, id})
	})

	assert.Equal(t, []hit{{1, 4}, {3, 5}, {3, 4}, {4, 6}}, hits)
}

func TestRecordDepsCollapsesDuplicates(t *testing.T) {
	rec := &Record{ID: 1, Tag: 1, Fields: Fields{
		{Slot: 1, Value: Ref(2)},
		{Slot: 2, Value: Ref(2)},
		{Slot: 3, Value: Refs{3, 2, 0}},
	}}

	deps := rec.Deps()
	assert.Equal(t, []ReferenceID{2, 3}, deps.Sorted())
	assert.False(t, deps.Has(NoReference))
}

func TestKindNames(t *testing.T) {
	for k := KindBool; k <= KindEmbedded; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
		assert.True(t, k.Valid())
		assert.Equal(t, k, Zero(k).Kind())
	}

	_, ok := ParseKind("invalid")
	assert.False(t, ok)
	assert.False(t, KindInvalid.Valid())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.True(t, KindRefs.IsReference())
	assert.False(t, KindEmbedded.IsReference())
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(3, 0, 1, 3)
	assert.Equal(t, 2, s.Len())

	s.Union(NewIDSet(2, 1))
	assert.Equal(t, []ReferenceID{1, 2, 3}, s.Sorted())
}

func TestPayloadLookup(t *testing.T) {
	p := NewPayload([]ReferenceID{2}, []*Record{{ID: 2, Tag: 1}, {ID: 1, Tag: 1}})

	assert.Equal(t, []ReferenceID{1, 2}, p.IDs())
	rec, ok := p.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, ReferenceID(2), rec.ID)

	_, ok = p.Lookup(99)
	assert.False(t, ok)
}

func TestErrorHelpers(t *testing.T) {
	err := NewDangling([]ReferenceID{99})
	assert.True(t, IsDangling(err))
	assert.False(t, IsFormatError(err))
	assert.Contains(t, err.Error(), "ids=[99]")

	wrapped := NewTypeMismatch(3, 1025, "expected %s", "GameObject")
	assert.True(t, IsTypeMismatch(wrapped))
	assert.Equal(t, "TYPE_MISMATCH: expected GameObject (id=3, tag=1025)", wrapped.Error())

	assert.True(t, IsUnresolved(NewUnresolved(7)))
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("payload"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest([]byte("payload")))
	assert.NotEqual(t, a, Digest([]byte("payload2")))
	assert.NotEqual(t, a, hashWithDomain(DomainRecord, []byte("payload")), "domains separate digests")

	rd, err := RecordDigest(&Record{ID: 1, Tag: tagNode}, newTestSchema())
	require.NoError(t, err)
	assert.Len(t, rd, 64)
}
