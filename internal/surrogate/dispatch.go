package surrogate

import (
	"fmt"
	"reflect"

	"github.com/roach88/rtsl/internal/wire"
)

// HookEvent describes one dispatched operation.
type HookEvent struct {
	Op    Op
	Phase Phase // WriteTo only

	// Tag is the concrete type of the object or record.
	Tag wire.Tag

	// Level is the chain tag the running hook was installed on.
	Level wire.Tag

	// Object is the live object. For WriteTo it is nil before allocation
	// unless an existing object is being reused. A WriteTo hook may replace
	// it; the replacement is what the pass continues with.
	Object any

	// Record is the persistent record being read or written.
	Record *wire.Record

	// Deps is the dependency set for GetDeps and GetDepsFrom.
	Deps wire.IDSet
}

// Hook adjusts behavior around a core operation. A non-nil error aborts the
// operation.
type Hook func(ev *HookEvent) error

type hookKey struct {
	tag wire.Tag
	op  Op
}

// Before installs a hook that runs before op on tag and on every subtype
// of tag. Hooks of the same level run in installation order; levels run
// from the root of the chain down.
func (r *Registry) Before(tag wire.Tag, op Op, h Hook) error {
	return r.addHook(r.before, tag, op, h)
}

// After installs a hook that runs after op on tag and on every subtype of
// tag. Levels run from the concrete type up to the root.
func (r *Registry) After(tag wire.Tag, op Op, h Hook) error {
	return r.addHook(r.after, tag, op, h)
}

func (r *Registry) addHook(hooks map[hookKey][]Hook, tag wire.Tag, op Op, h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[tag]; !ok {
		return fmt.Errorf("hook %s: tag %d is not a registered object type", op, tag)
	}
	k := hookKey{tag, op}
	hooks[k] = append(hooks[k], h)
	return nil
}

// run invokes a core operation bracketed by the chain's hooks.
func (r *Registry) run(ev *HookEvent, core func() error) error {
	r.mu.RLock()
	chain := r.chain(ev.Tag)
	var before, after [][]Hook
	for _, tag := range chain {
		before = append(before, r.before[hookKey{tag, ev.Op}])
		after = append(after, r.after[hookKey{tag, ev.Op}])
	}
	r.mu.RUnlock()

	for i, hooks := range before {
		ev.Level = chain[i]
		for _, h := range hooks {
			if err := h(ev); err != nil {
				return fmt.Errorf("before %s hook (tag %d): %w", ev.Op, chain[i], err)
			}
		}
	}

	if err := core(); err != nil {
		return err
	}

	for i := len(after) - 1; i >= 0; i-- {
		ev.Level = chain[i]
		for _, h := range after[i] {
			if err := h(ev); err != nil {
				return fmt.Errorf("after %s hook (tag %d): %w", ev.Op, chain[i], err)
			}
		}
	}
	return nil
}

// ReadFrom produces the record of obj. The record id is obj's id in ctx.
func (r *Registry) ReadFrom(ctx *ReadContext, obj any) (*wire.Record, error) {
	t, err := r.TypeOf(obj)
	if err != nil {
		return nil, err
	}
	rec := &wire.Record{ID: ctx.ToID(obj), Tag: t.Descriptor().Tag}
	ev := &HookEvent{Op: OpReadFrom, Tag: rec.Tag, Object: obj, Record: rec}
	err = r.run(ev, func() error {
		return t.ReadFrom(ctx, ev.Object, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// WriteTo applies rec in ctx.Phase. existing, when non-nil, is mutated in
// place instead of allocating a new object.
func (r *Registry) WriteTo(ctx *WriteContext, rec *wire.Record, existing any) (any, error) {
	t, ok := r.Lookup(rec.Tag)
	if !ok {
		return nil, &wire.Error{Code: wire.ErrCodeFormat, Message: "unknown type tag", ID: rec.ID, Tag: rec.Tag}
	}
	if existing != nil && reflect.TypeOf(existing) != t.LiveType() {
		return nil, wire.NewTypeMismatch(rec.ID, rec.Tag,
			"record is a %s but the live object is %T", t.Descriptor().Name, existing)
	}

	ev := &HookEvent{Op: OpWriteTo, Phase: ctx.Phase, Tag: rec.Tag, Object: existing, Record: rec}
	err := r.run(ev, func() error {
		obj, err := t.WriteTo(ctx, rec, ev.Object)
		if err != nil {
			return err
		}
		ev.Object = obj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev.Object, nil
}

// GetDeps adds the ids referenced by rec to ctx.
func (r *Registry) GetDeps(ctx *DepsContext, rec *wire.Record) error {
	t, ok := r.Lookup(rec.Tag)
	if !ok {
		return &wire.Error{Code: wire.ErrCodeFormat, Message: "unknown type tag", ID: rec.ID, Tag: rec.Tag}
	}
	ev := &HookEvent{Op: OpGetDeps, Tag: rec.Tag, Record: rec, Deps: ctx.Deps}
	return r.run(ev, func() error {
		t.GetDeps(ctx, rec)
		return nil
	})
}

// GetDepsFrom adds the ids of the objects obj references to ctx.
func (r *Registry) GetDepsFrom(ctx *DepsContext, obj any) error {
	t, err := r.TypeOf(obj)
	if err != nil {
		return err
	}
	ev := &HookEvent{Op: OpGetDepsFrom, Tag: t.Descriptor().Tag, Object: obj, Deps: ctx.Deps}
	return r.run(ev, func() error {
		return t.GetDepsFrom(ctx, ev.Object)
	})
}
