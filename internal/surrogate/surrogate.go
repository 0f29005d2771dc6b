package surrogate

import (
	"fmt"
	"reflect"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/wire"
)

// Surrogate converts between one live type and its persistent record.
type Surrogate interface {
	// ReadFrom fills rec from obj. References are stored as ids assigned
	// through ctx.
	ReadFrom(ctx *ReadContext, obj any, rec *wire.Record) error

	// WriteTo applies rec to obj and returns the object. A nil obj means
	// allocate a new one. Which slots are written depends on ctx.Phase.
	WriteTo(ctx *WriteContext, rec *wire.Record, obj any) (any, error)

	// GetDeps adds every id referenced by rec to ctx.
	GetDeps(ctx *DepsContext, rec *wire.Record)

	// GetDepsFrom adds the id of every object referenced by obj to ctx.
	GetDepsFrom(ctx *DepsContext, obj any) error
}

// Type is a registrable surrogate.
type Type interface {
	Surrogate

	// Descriptor returns the type's tag, base tag and own slots.
	Descriptor() wire.TypeDescriptor

	// New allocates a zero live object. Abstract types return nil.
	New() any

	// LiveType is the dynamic type of live objects of this type.
	LiveType() reflect.Type
}

// ValueDescriptor is an embeddable value type. It is registered for its
// layout and never appears as a record.
type ValueDescriptor interface {
	Descriptor() wire.TypeDescriptor
}

// Op names a surrogate operation.
type Op uint8

const (
	OpReadFrom Op = iota
	OpWriteTo
	OpGetDeps
	OpGetDepsFrom
)

func (o Op) String() string {
	switch o {
	case OpReadFrom:
		return "ReadFrom"
	case OpWriteTo:
		return "WriteTo"
	case OpGetDeps:
		return "GetDeps"
	case OpGetDepsFrom:
		return "GetDepsFrom"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Phase selects the slots WriteTo touches.
type Phase uint8

const (
	// PhaseAllocate writes every non-reference slot and leaves references
	// unset, since their targets may not exist yet.
	PhaseAllocate Phase = iota

	// PhaseLink writes only reference slots, resolving ids to objects
	// allocated in the first phase.
	PhaseLink
)

func (p Phase) String() string {
	if p == PhaseLink {
		return "link"
	}
	return "allocate"
}

// writes reports whether a slot of kind k is written in this phase.
func (p Phase) writes(k wire.Kind) bool {
	return k.IsReference() == (p == PhaseLink)
}

// ReadContext carries the pass state ReadFrom needs.
type ReadContext struct {
	IDs *identity.Registry
}

// ToID returns the id of a referenced object, assigning one on first visit.
// Nil objects map to NoReference.
func (c *ReadContext) ToID(obj any) wire.ReferenceID {
	if identity.IsNil(obj) {
		return wire.NoReference
	}
	return c.IDs.GetOrAssignID(obj)
}

// WriteContext carries the pass state WriteTo needs.
type WriteContext struct {
	Phase Phase
	IDs   *identity.Registry

	// Dangling holds ids with no record in the payload. Reference slots
	// pointing at them are reset to their zero value.
	Dangling wire.IDSet
}

// FromID resolves a reference slot value. ok is false when the target is
// dangling. NoReference resolves to a nil object with ok true.
func (c *WriteContext) FromID(id wire.ReferenceID) (obj any, ok bool, err error) {
	if id == wire.NoReference {
		return nil, true, nil
	}
	if c.Dangling.Has(id) {
		return nil, false, nil
	}
	obj, err = c.IDs.ResolveID(id)
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

// DepsContext collects referenced ids.
type DepsContext struct {
	Deps wire.IDSet

	// IDs assigns ids to live objects. Only GetDepsFrom needs it.
	IDs *identity.Registry

	// Discovered, if set, is called for each object that received its id
	// through this context.
	Discovered func(obj any)
}

// NewDepsContext creates a context with an empty dependency set.
func NewDepsContext(ids *identity.Registry) *DepsContext {
	return &DepsContext{Deps: wire.NewIDSet(), IDs: ids}
}

// Add records a referenced id. NoReference is ignored.
func (c *DepsContext) Add(id wire.ReferenceID) {
	c.Deps.Add(id)
}

// AddObject records a referenced live object, assigning its id on first
// visit. Nil objects are ignored.
func (c *DepsContext) AddObject(obj any) wire.ReferenceID {
	if identity.IsNil(obj) {
		return wire.NoReference
	}
	id, fresh := c.IDs.Assign(obj)
	c.Deps.Add(id)
	if fresh && c.Discovered != nil {
		c.Discovered(obj)
	}
	return id
}
