package surrogate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/wire"
)

func TestRegistryTableKeepsRegistrationOrder(t *testing.T) {
	f := newFixture()

	var tags []wire.Tag
	for _, d := range f.reg.Table() {
		tags = append(tags, d.Tag)
	}
	assert.Equal(t, []wire.Tag{tagVec2, tagBase, tagNode, tagOther, tagSpecial}, tags)
}

func TestRegistryLayoutFlattensChain(t *testing.T) {
	f := newFixture()

	l, ok := f.reg.Layout(tagSpecial)
	require.True(t, ok)
	assert.Equal(t, "Special", l.Name)

	var slots []wire.Slot
	for _, fd := range l.Fields {
		slots = append(slots, fd.Slot)
	}
	assert.Equal(t, []wire.Slot{1, 2, 256, 257, 258, 259, 260, 261, 262, 263, 264, 512}, slots)

	fd, ok := l.Field(256)
	require.True(t, ok)
	assert.Equal(t, wire.Bool(true), fd.Default)

	vl, ok := f.reg.Layout(tagVec2)
	require.True(t, ok)
	assert.True(t, vl.Value)

	desc := f.special.Descriptor()
	assert.Equal(t, tagNode, desc.Base)
	assert.Len(t, desc.Fields, 1, "descriptors list own slots only")
}

func TestRegistryChain(t *testing.T) {
	f := newFixture()
	assert.Equal(t, []wire.Tag{tagBase, tagNode, tagSpecial}, f.reg.Chain(tagSpecial))
	assert.Equal(t, []wire.Tag{tagBase}, f.reg.Chain(tagBase))
	assert.Nil(t, f.reg.Chain(999))
}

func TestRegistryTypeOf(t *testing.T) {
	f := newFixture()

	typ, err := f.reg.TypeOf(&special{})
	require.NoError(t, err)
	assert.Equal(t, tagSpecial, typ.Descriptor().Tag)

	_, err = f.reg.TypeOf(&struct{}{})
	assert.Error(t, err)
	_, err = f.reg.TypeOf(nil)
	assert.Error(t, err)
}

func TestRegistryValidation(t *testing.T) {
	type thing struct{ A, B int }
	intA := Int(1, "a", func(x *thing) int { return x.A }, func(x *thing, n int) { x.A = n })
	intB := Int(1, "b", func(x *thing) int { return x.B }, func(x *thing, n int) { x.B = n })
	newThing := func() *thing { return new(thing) }

	tests := []struct {
		name  string
		setup func(r *Registry) error
	}{
		{"duplicate tag", func(r *Registry) error {
			r.MustRegister(NewMapping(7, "A", newThing))
			return r.Register(NewMapping(7, "B", func() *special { return nil }))
		}},
		{"non-positive tag", func(r *Registry) error {
			return r.Register(NewMapping(0, "A", newThing))
		}},
		{"duplicate slot", func(r *Registry) error {
			return r.Register(NewMapping(7, "A", newThing, intA, intB))
		}},
		{"slot collides with base", func(r *Registry) error {
			bm := baseMapping()
			r.MustRegister(bm)
			m := NewMapping(8, "Sub", func() *other { return new(other) },
				String(1, "clash", func(o *other) string { return o.Label }, func(o *other, s string) { o.Label = s }),
			).Extends(Inherit(bm, func(o *other) *base { return &o.base }))
			return r.Register(m)
		}},
		{"unregistered base", func(r *Registry) error {
			return r.Register(otherMapping(baseMapping()))
		}},
		{"reserved slot", func(r *Registry) error {
			bad := Int(19001, "a", func(x *thing) int { return x.A }, func(x *thing, n int) { x.A = n })
			return r.Register(NewMapping(7, "A", newThing, bad))
		}},
		{"unregistered embedded value", func(r *Registry) error {
			r.MustRegister(baseMapping())
			return r.Register(nodeMapping(baseMapping()))
		}},
		{"value type with reference", func(r *Registry) error {
			vt := NewValueType(9, "BadValue",
				Ref(1, "r", func(x *thing) *node { return nil }, func(x *thing, n *node) {}),
			)
			return r.RegisterValue(vt)
		}},
		{"default of wrong kind", func(r *Registry) error {
			return r.Register(NewMapping(7, "A", newThing, intA.Default(wire.String("x"))))
		}},
		{"live type mapped twice", func(r *Registry) error {
			r.MustRegister(NewMapping(7, "A", newThing))
			return r.Register(NewMapping(8, "B", newThing))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.setup(NewRegistry()))
		})
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustRegister("not a type") })
}

func TestHooksRunInChainOrder(t *testing.T) {
	f := newFixture()
	var calls []string
	record := func(label string) Hook {
		return func(ev *HookEvent) error {
			calls = append(calls, label)
			return nil
		}
	}

	require.NoError(t, f.reg.Before(tagBase, OpReadFrom, record("before:base")))
	require.NoError(t, f.reg.Before(tagNode, OpReadFrom, record("before:node")))
	require.NoError(t, f.reg.Before(tagSpecial, OpReadFrom, record("before:special")))
	require.NoError(t, f.reg.After(tagBase, OpReadFrom, record("after:base")))
	require.NoError(t, f.reg.After(tagSpecial, OpReadFrom, record("after:special")))
	require.NoError(t, f.reg.Before(tagOther, OpReadFrom, record("before:other")))

	_, err := f.reg.ReadFrom(&ReadContext{IDs: identity.New()}, &special{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before:base", "before:node", "before:special",
		"after:special", "after:base",
	}, calls)
	assert.Equal(t, 1, f.special.reads, "overridden core operation ran once, between the hooks")
}

func TestHooksAreNoOpsByDefault(t *testing.T) {
	f := newFixture()
	n := &node{base: base{Name: "plain"}}

	rec, err := f.reg.ReadFrom(&ReadContext{IDs: identity.New()}, n)
	require.NoError(t, err)
	direct := &wire.Record{ID: rec.ID}
	require.NoError(t, f.node.ReadFrom(&ReadContext{IDs: identity.New()}, n, direct))

	assert.Equal(t, direct.Fields, rec.Fields)
}

func TestWriteToHookCanReplaceObject(t *testing.T) {
	f := newFixture()
	pooled := &node{base: base{Name: "pooled"}}

	require.NoError(t, f.reg.Before(tagNode, OpWriteTo, func(ev *HookEvent) error {
		if ev.Phase == PhaseAllocate && ev.Object == nil {
			ev.Object = pooled
		}
		return nil
	}))

	var afterObj any
	require.NoError(t, f.reg.After(tagBase, OpWriteTo, func(ev *HookEvent) error {
		afterObj = ev.Object
		assert.Equal(t, tagBase, ev.Level)
		assert.Equal(t, tagNode, ev.Tag)
		return nil
	}))

	rec := &wire.Record{ID: 1, Tag: tagNode, Fields: wire.Fields{{Slot: 257, Value: wire.Float(4)}}}
	obj, err := f.reg.WriteTo(&WriteContext{IDs: identity.New()}, rec, nil)
	require.NoError(t, err)

	assert.Same(t, pooled, obj)
	assert.Same(t, pooled, afterObj)
	assert.Equal(t, 4.0, pooled.Weight)
}

func TestHookErrorAbortsOperation(t *testing.T) {
	f := newFixture()
	boom := errors.New("boom")
	require.NoError(t, f.reg.Before(tagNode, OpGetDeps, func(*HookEvent) error { return boom }))

	err := f.reg.GetDeps(NewDepsContext(nil), &wire.Record{ID: 1, Tag: tagNode})
	assert.ErrorIs(t, err, boom)
}

func TestHookSeesDeps(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.reg.After(tagNode, OpGetDepsFrom, func(ev *HookEvent) error {
		ev.Deps.Add(42)
		return nil
	}))

	ctx := NewDepsContext(identity.New())
	require.NoError(t, f.reg.GetDepsFrom(ctx, &node{}))
	assert.True(t, ctx.Deps.Has(42))
}

func TestHookOnUnknownTag(t *testing.T) {
	f := newFixture()
	assert.Error(t, f.reg.Before(9999, OpReadFrom, func(*HookEvent) error { return nil }))
	assert.Error(t, f.reg.After(tagVec2, OpReadFrom, func(*HookEvent) error { return nil }), "value types have no hooks")
}

func TestOpAndPhaseNames(t *testing.T) {
	assert.Equal(t, "GetDepsFrom", OpGetDepsFrom.String())
	assert.Equal(t, "Op(9)", Op(9).String())
	assert.Equal(t, "link", PhaseLink.String())
	assert.Equal(t, "allocate", PhaseAllocate.String())
}
