// Package identity maps live objects to payload reference ids for the
// duration of one serialization pass.
//
// Ids are assigned on first visit, starting at 1. Because an object gets its
// id before any of its fields are read, a cycle A -> B -> A finds A's id
// already assigned on the way back and terminates.
//
// A Registry is not safe for concurrent use. One pass owns one registry and
// discards it when the pass ends.
package identity

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/rtsl/internal/wire"
)

// Registry is a bijection between live objects and reference ids.
type Registry struct {
	ids     map[any]wire.ReferenceID
	objects map[wire.ReferenceID]any
	last    wire.ReferenceID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		ids:     make(map[any]wire.ReferenceID),
		objects: make(map[wire.ReferenceID]any),
	}
}

// GetOrAssignID returns obj's id, assigning the next unused id on first
// visit. A nil object (including a typed nil pointer) has NoReference.
func (r *Registry) GetOrAssignID(obj any) wire.ReferenceID {
	id, _ := r.Assign(obj)
	return id
}

// Assign is GetOrAssignID that also reports whether the id is new in this
// pass. Walkers use fresh to decide whether to descend into obj.
//
// Live objects are identified by pointer equality; obj must be a pointer.
func (r *Registry) Assign(obj any) (id wire.ReferenceID, fresh bool) {
	if IsNil(obj) {
		return wire.NoReference, false
	}
	mustBePointer(obj)

	if id, ok := r.ids[obj]; ok {
		return id, false
	}
	r.last++
	r.ids[obj] = r.last
	r.objects[r.last] = obj
	return r.last, true
}

// Lookup returns obj's id without assigning one.
func (r *Registry) Lookup(obj any) (wire.ReferenceID, bool) {
	if IsNil(obj) {
		return wire.NoReference, false
	}
	id, ok := r.ids[obj]
	return id, ok
}

// Bind records that id was allocated as obj. Used in the load direction,
// where ids come from the payload rather than from visit order.
func (r *Registry) Bind(id wire.ReferenceID, obj any) error {
	if id <= wire.NoReference {
		return wire.Formatf("cannot bind non-positive id %d", id)
	}
	if IsNil(obj) {
		return wire.Formatf("cannot bind id %d to a nil object", id)
	}
	mustBePointer(obj)

	if prev, ok := r.objects[id]; ok && prev != obj {
		return &wire.Error{Code: wire.ErrCodeFormat, Message: "id bound twice", ID: id}
	}
	if prev, ok := r.ids[obj]; ok && prev != id {
		return &wire.Error{
			Code:    wire.ErrCodeFormat,
			Message: fmt.Sprintf("object already bound to id %d", prev),
			ID:      id,
		}
	}

	r.ids[obj] = id
	r.objects[id] = obj
	r.last = max(r.last, id)
	return nil
}

// ResolveID returns the object allocated for id. NoReference resolves to
// nil. An id that has not been allocated yet is UNRESOLVED_REFERENCE: the
// caller asked for a link before the allocate phase finished.
func (r *Registry) ResolveID(id wire.ReferenceID) (any, error) {
	if id == wire.NoReference {
		return nil, nil
	}
	obj, ok := r.objects[id]
	if !ok {
		return nil, wire.NewUnresolved(id)
	}
	return obj, nil
}

// Object returns the object for id, if any.
func (r *Registry) Object(id wire.ReferenceID) (any, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.objects)
}

// IDs returns all registered ids in ascending order.
func (r *Registry) IDs() []wire.ReferenceID {
	ids := make([]wire.ReferenceID, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsNil reports whether v is nil or a nil pointer, map, slice, func,
// channel or interface held in an interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func mustBePointer(obj any) {
	if reflect.TypeOf(obj).Kind() != reflect.Pointer {
		panic(fmt.Sprintf("identity: live objects must be pointers, got %T", obj))
	}
}
