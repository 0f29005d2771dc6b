package surrogate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/wire"
)

func sampleNode() *node {
	n := &node{
		base:   base{Name: "root", Flags: 3},
		Active: true,
		Weight: 2.5,
		Pos:    vec2{X: 1, Y: -1},
		Data:   []byte{1, 2},
		Verts:  []float32{0, 1, 2},
		Tris:   []int32{0, 1, 2},
		Other:  &other{base: base{Name: "o"}, Label: "lbl"},
	}
	child := &node{base: base{Name: "child"}, Next: n}
	n.Next = child
	n.Items = []*node{child, nil, child}
	return n
}

func TestMappingReadFrom(t *testing.T) {
	f := newFixture()
	ids := identity.New()
	n := sampleNode()

	rec, err := f.reg.ReadFrom(&ReadContext{IDs: ids}, n)
	require.NoError(t, err)

	assert.Equal(t, wire.ReferenceID(1), rec.ID)
	assert.Equal(t, tagNode, rec.Tag)
	assert.Equal(t, []wire.Slot{1, 2, 256, 257, 258, 259, 260, 261, 262, 263, 264}, rec.Fields.Slots())

	name, _ := rec.Fields.Get(1)
	assert.Equal(t, wire.String("root"), name)

	pos, _ := rec.Fields.Get(258)
	assert.Equal(t, wire.Embedded{{Slot: 1, Value: wire.Float(1)}, {Slot: 2, Value: wire.Float(-1)}}, pos)

	next, _ := rec.Fields.Get(262)
	assert.Equal(t, wire.Ref(2), next, "child gets the next id")

	items, _ := rec.Fields.Get(263)
	assert.Equal(t, wire.Refs{2, 0, 2}, items, "null elements keep their position")

	other, _ := rec.Fields.Get(264)
	assert.Equal(t, wire.Ref(3), other)
}

func TestMappingReadFromIsDeterministic(t *testing.T) {
	f := newFixture()
	ids := identity.New()
	n := sampleNode()
	ctx := &ReadContext{IDs: ids}

	a, err := f.reg.ReadFrom(ctx, n)
	require.NoError(t, err)
	b, err := f.reg.ReadFrom(ctx, n)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMappingReadCopiesBuffers(t *testing.T) {
	f := newFixture()
	n := &node{Verts: []float32{1, 2}}

	rec, err := f.reg.ReadFrom(&ReadContext{IDs: identity.New()}, n)
	require.NoError(t, err)

	n.Verts[0] = 99
	verts, _ := rec.Fields.Get(260)
	assert.Equal(t, wire.Float32s{1, 2}, verts)
}

func TestMappingTwoPhaseWrite(t *testing.T) {
	f := newFixture()
	src := sampleNode()

	readIDs := identity.New()
	rctx := &ReadContext{IDs: readIDs}
	var recs []*wire.Record
	for _, obj := range []any{src, src.Next, src.Other} {
		rec, err := f.reg.ReadFrom(rctx, obj)
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	ids := identity.New()
	alloc := &WriteContext{Phase: PhaseAllocate, IDs: ids}
	for _, rec := range recs {
		obj, err := f.reg.WriteTo(alloc, rec, nil)
		require.NoError(t, err)
		require.NoError(t, ids.Bind(rec.ID, obj))
	}

	root, _ := ids.Object(1)
	n := root.(*node)
	assert.Equal(t, "root", n.Name)
	assert.Equal(t, int32(3), n.Flags)
	assert.Equal(t, vec2{X: 1, Y: -1}, n.Pos)
	assert.Equal(t, []float32{0, 1, 2}, n.Verts)
	assert.Nil(t, n.Next, "references stay unset in the allocate phase")
	assert.Nil(t, n.Items)

	link := &WriteContext{Phase: PhaseLink, IDs: ids}
	for _, rec := range recs {
		obj, _ := ids.Object(rec.ID)
		_, err := f.reg.WriteTo(link, rec, obj)
		require.NoError(t, err)
	}

	child, _ := ids.Object(2)
	assert.Same(t, child, n.Next)
	assert.Same(t, n, n.Next.Next, "cycle restored")
	require.Len(t, n.Items, 3)
	assert.Nil(t, n.Items[1])
	assert.Equal(t, "lbl", n.Other.Label)
	assert.Equal(t, "o", n.Other.Name)
}

func TestMappingWriteReusesExisting(t *testing.T) {
	f := newFixture()
	existing := &node{Weight: 9, Verts: []float32{7}}
	rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 257, Value: wire.Float(1.5)}}}

	obj, err := f.reg.WriteTo(&WriteContext{IDs: identity.New()}, rec, existing)
	require.NoError(t, err)

	assert.Same(t, existing, obj)
	assert.Equal(t, 1.5, existing.Weight)
	assert.Equal(t, []float32{7}, existing.Verts, "missing slots leave fields untouched")
}

func TestMappingWriteDangling(t *testing.T) {
	f := newFixture()
	ids := identity.New()
	target := &node{}
	require.NoError(t, ids.Bind(2, target))

	prev := &node{}
	n := &node{Next: prev}
	rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{
		{Slot: 262, Value: wire.Ref(99)},
		{Slot: 263, Value: wire.Refs{2, 99, 2}},
	}}

	ctx := &WriteContext{Phase: PhaseLink, IDs: ids, Dangling: wire.NewIDSet(99)}
	_, err := f.reg.WriteTo(ctx, rec, n)
	require.NoError(t, err)

	assert.Nil(t, n.Next, "dangling reference clears the previous target")
	assert.Equal(t, []*node{target, target}, n.Items, "dangling elements are dropped")
}

func TestMappingWriteUnresolved(t *testing.T) {
	f := newFixture()
	rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 262, Value: wire.Ref(5)}}}

	_, err := f.reg.WriteTo(&WriteContext{Phase: PhaseLink, IDs: identity.New()}, rec, &node{})
	require.Error(t, err)
	assert.True(t, wire.IsUnresolved(err))
}

func TestMappingWriteTypeMismatch(t *testing.T) {
	f := newFixture()

	t.Run("record tag differs from mapping", func(t *testing.T) {
		_, err := f.node.WriteTo(&WriteContext{}, &wire.Record{ID: 1, Tag: tagOther}, nil)
		assert.True(t, wire.IsTypeMismatch(err))
	})

	t.Run("existing object of another type", func(t *testing.T) {
		_, err := f.reg.WriteTo(&WriteContext{}, &wire.Record{ID: 1, Tag: tagNode}, &other{})
		assert.True(t, wire.IsTypeMismatch(err))
	})

	t.Run("slot holds the wrong kind", func(t *testing.T) {
		rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 1, Value: wire.Int(4)}}}
		_, err := f.reg.WriteTo(&WriteContext{}, rec, nil)
		assert.True(t, wire.IsTypeMismatch(err))
	})

	t.Run("reference target of another type", func(t *testing.T) {
		ids := identity.New()
		require.NoError(t, ids.Bind(2, &other{}))
		rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 262, Value: wire.Ref(2)}}}

		_, err := f.reg.WriteTo(&WriteContext{Phase: PhaseLink, IDs: ids}, rec, &node{})
		require.Error(t, err)
		assert.True(t, wire.IsTypeMismatch(err))

		var we *wire.Error
		require.ErrorAs(t, err, &we)
		assert.Equal(t, wire.ReferenceID(1), we.ID)
		assert.Equal(t, tagNode, we.Tag)
	})

	t.Run("integer does not fit the field", func(t *testing.T) {
		rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 2, Value: wire.Int(1 << 40)}}}
		n := &node{}
		_, err := f.reg.WriteTo(&WriteContext{}, rec, n)
		require.Error(t, err)
		assert.True(t, wire.IsTypeMismatch(err))
		assert.Zero(t, n.Flags)
	})

	t.Run("abstract type cannot be allocated", func(t *testing.T) {
		_, err := f.reg.WriteTo(&WriteContext{}, &wire.Record{ID: 1, Tag: tagBase}, nil)
		assert.True(t, wire.IsTypeMismatch(err))
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := f.reg.WriteTo(&WriteContext{}, &wire.Record{ID: 1, Tag: 4242}, nil)
		assert.True(t, wire.IsFormatError(err))
	})
}

func TestGetDepsFromRecord(t *testing.T) {
	f := newFixture()
	rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{
		{Slot: 1, Value: wire.String("x")},
		{Slot: 262, Value: wire.Ref(2)},
		{Slot: 263, Value: wire.Refs{3, 2, 0}},
		{Slot: 264, Value: wire.Ref(0)},
	}}

	ctx := NewDepsContext(nil)
	require.NoError(t, f.reg.GetDeps(ctx, rec))
	assert.Equal(t, []wire.ReferenceID{2, 3}, ctx.Deps.Sorted())
}

func TestGetDepsFromLiveObject(t *testing.T) {
	f := newFixture()
	n := sampleNode()
	ids := identity.New()
	ids.GetOrAssignID(n)

	var discovered []any
	ctx := NewDepsContext(ids)
	ctx.Discovered = func(obj any) { discovered = append(discovered, obj) }

	require.NoError(t, f.reg.GetDepsFrom(ctx, n))
	assert.Equal(t, []wire.ReferenceID{2, 3}, ctx.Deps.Sorted())
	assert.Equal(t, []any{n.Next, n.Other}, discovered)
}

func TestValueTypeDecodeKeepsMissingSlots(t *testing.T) {
	v := vec2{X: 5, Y: 6}
	require.NoError(t, vec2Type.Decode(wire.Embedded{{Slot: 2, Value: wire.Float(9)}}, &v))
	assert.Equal(t, vec2{X: 5, Y: 9}, v)

	err := vec2Type.Decode(wire.Embedded{{Slot: 1, Value: wire.String("x")}}, &v)
	assert.True(t, wire.IsTypeMismatch(err))
}

func TestIntRange(t *testing.T) {
	type counter struct{ N uint8 }
	m := NewMapping(7, "Counter", func() *counter { return new(counter) },
		Int(1, "n", func(c *counter) uint8 { return c.N }, func(c *counter, n uint8) { c.N = n }),
	)
	write := func(v int64) (*counter, error) {
		rec := &wire.Record{ID: 1, Tag: 7, Fields: wire.Fields{{Slot: 1, Value: wire.Int(v)}}}
		obj, err := m.WriteTo(&WriteContext{}, rec, nil)
		if err != nil {
			return nil, err
		}
		return obj.(*counter), nil
	}

	c, err := write(255)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.N)

	for _, v := range []int64{256, -1, -1 << 62} {
		_, err := write(v)
		assert.True(t, wire.IsTypeMismatch(err), "value %d", v)
	}
}
