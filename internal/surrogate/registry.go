package surrogate

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/rtsl/internal/wire"
)

// Registry is the ordered type-registration table and the dispatcher for
// surrogate operations.
//
// Thread-safety: registration and hook installation take a write lock;
// lookups and dispatch take a read lock, so a fully built registry can be
// shared by concurrent passes over different object graphs.
//
// INVARIANTS:
//   - Tags are unique across object types and value types
//   - A subtype's base is registered before it, so chains are acyclic
//   - Slots are unique along every chain
type Registry struct {
	mu      sync.RWMutex
	order   []wire.Tag
	types   map[wire.Tag]Type
	values  map[wire.Tag]wire.TypeDescriptor
	byLive  map[reflect.Type]wire.Tag
	layouts map[wire.Tag]*wire.Layout
	before  map[hookKey][]Hook
	after   map[hookKey][]Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[wire.Tag]Type),
		values:  make(map[wire.Tag]wire.TypeDescriptor),
		byLive:  make(map[reflect.Type]wire.Tag),
		layouts: make(map[wire.Tag]*wire.Layout),
		before:  make(map[hookKey][]Hook),
		after:   make(map[hookKey][]Hook),
	}
}

// Register adds an object type. Its base (if any) and the value types its
// embedded slots use must already be registered.
func (r *Registry) Register(t Type) error {
	desc := t.Descriptor()
	if desc.Value {
		return fmt.Errorf("register %s: value types use RegisterValue", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var inherited []wire.FieldDescriptor
	if desc.Base != 0 {
		if desc.Base == desc.Tag {
			return fmt.Errorf("register %s: type cannot extend itself", desc.Name)
		}
		if _, ok := r.types[desc.Base]; !ok {
			return fmt.Errorf("register %s: base tag %d is not a registered object type", desc.Name, desc.Base)
		}
		inherited = r.layouts[desc.Base].Fields
	}
	if err := r.checkDescriptor(desc, inherited); err != nil {
		return err
	}

	live := t.LiveType()
	if live != nil {
		if prev, ok := r.byLive[live]; ok {
			return fmt.Errorf("register %s: live type %s already mapped to tag %d", desc.Name, live, prev)
		}
		r.byLive[live] = desc.Tag
	}

	r.order = append(r.order, desc.Tag)
	r.types[desc.Tag] = t
	r.layouts[desc.Tag] = wire.NewLayout(desc.Tag, desc.Name, false, append(slices.Clone(inherited), desc.Fields...))
	return nil
}

// RegisterValue adds an embeddable value type.
func (r *Registry) RegisterValue(v ValueDescriptor) error {
	desc := v.Descriptor()
	if !desc.Value {
		return fmt.Errorf("register %s: not a value type", desc.Name)
	}
	if desc.Base != 0 {
		return fmt.Errorf("register %s: value types cannot extend other types", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkDescriptor(desc, nil); err != nil {
		return err
	}
	for _, f := range desc.Fields {
		if f.Kind.IsReference() {
			return fmt.Errorf("register %s: value types cannot hold reference slot %d (%s)", desc.Name, f.Slot, f.Name)
		}
	}

	r.order = append(r.order, desc.Tag)
	r.values[desc.Tag] = desc
	r.layouts[desc.Tag] = wire.NewLayout(desc.Tag, desc.Name, true, desc.Fields)
	return nil
}

// MustRegister registers types in order and panics on the first error.
// Use it for static registration tables.
func (r *Registry) MustRegister(types ...any) {
	for _, t := range types {
		var err error
		switch t := t.(type) {
		case Type:
			err = r.Register(t)
		case ValueDescriptor:
			err = r.RegisterValue(t)
		default:
			err = fmt.Errorf("cannot register %T", t)
		}
		if err != nil {
			panic(err)
		}
	}
}

// checkDescriptor validates tag and slots. Caller holds the write lock.
func (r *Registry) checkDescriptor(desc wire.TypeDescriptor, inherited []wire.FieldDescriptor) error {
	if desc.Tag <= 0 {
		return fmt.Errorf("register %s: tag must be positive, got %d", desc.Name, desc.Tag)
	}
	if desc.Name == "" {
		return fmt.Errorf("register tag %d: name is required", desc.Tag)
	}
	if _, ok := r.layouts[desc.Tag]; ok {
		return fmt.Errorf("register %s: tag %d already registered as %s", desc.Name, desc.Tag, r.layouts[desc.Tag].Name)
	}

	seen := make(map[wire.Slot]string, len(inherited)+len(desc.Fields))
	for _, f := range inherited {
		seen[f.Slot] = f.Name
	}
	for _, f := range desc.Fields {
		if !wire.ValidSlot(f.Slot) {
			return fmt.Errorf("register %s: invalid slot %d (%s)", desc.Name, f.Slot, f.Name)
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("register %s: slot %d (%s) has invalid kind", desc.Name, f.Slot, f.Name)
		}
		if prev, ok := seen[f.Slot]; ok {
			return fmt.Errorf("register %s: slot %d (%s) already used by %s", desc.Name, f.Slot, f.Name, prev)
		}
		seen[f.Slot] = f.Name

		if f.Default != nil && f.Default.Kind() != f.Kind {
			return fmt.Errorf("register %s: slot %d default is %s, want %s", desc.Name, f.Slot, f.Default.Kind(), f.Kind)
		}
		if f.Kind == wire.KindEmbedded {
			if _, ok := r.values[f.Elem]; !ok {
				return fmt.Errorf("register %s: slot %d embeds unregistered value type %d", desc.Name, f.Slot, f.Elem)
			}
		}
	}
	return nil
}

// Lookup returns the object type registered under tag.
func (r *Registry) Lookup(tag wire.Tag) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[tag]
	return t, ok
}

// TypeOf returns the object type of a live object.
func (r *Registry) TypeOf(obj any) (Type, error) {
	if obj == nil {
		return nil, fmt.Errorf("no surrogate for nil object")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byLive[reflect.TypeOf(obj)]
	if !ok {
		return nil, fmt.Errorf("no surrogate registered for %T", obj)
	}
	return r.types[tag], nil
}

// Layout implements wire.Schema. It covers object and value types.
func (r *Registry) Layout(tag wire.Tag) (*wire.Layout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[tag]
	return l, ok
}

// Table returns every registered descriptor in registration order.
func (r *Registry) Table() []wire.TypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.TypeDescriptor, 0, len(r.order))
	for _, tag := range r.order {
		if t, ok := r.types[tag]; ok {
			out = append(out, t.Descriptor())
		} else {
			out = append(out, r.values[tag])
		}
	}
	return out
}

// Chain returns tag and its ancestors, root first. Unknown tags yield nil.
func (r *Registry) Chain(tag wire.Tag) []wire.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain(tag)
}

func (r *Registry) chain(tag wire.Tag) []wire.Tag {
	var out []wire.Tag
	for tag != 0 {
		t, ok := r.types[tag]
		if !ok {
			break
		}
		out = append(out, tag)
		tag = t.Descriptor().Base
	}
	slices.Reverse(out)
	return out
}
