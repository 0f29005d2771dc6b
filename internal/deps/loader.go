package deps

import (
	"fmt"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

// State is a Loader's position in the two-phase protocol.
type State uint8

const (
	StateIdle State = iota
	StateAllocating
	StateAllocated
	StateLinking
	StateLinked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAllocating:
		return "ALLOCATING"
	case StateAllocated:
		return "ALLOCATED"
	case StateLinking:
		return "LINKING"
	case StateLinked:
		return "LINKED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// IsTerminal reports whether the loader can make no further progress.
func IsTerminal(s State) bool {
	return s == StateLinked || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return !IsTerminal(from)
	}
	switch from {
	case StateIdle:
		return to == StateAllocating
	case StateAllocating:
		return to == StateAllocated
	case StateAllocated:
		return to == StateLinking
	case StateLinking:
		return to == StateLinked
	default:
		return false
	}
}

// LoadOption configures a Loader.
type LoadOption func(*loadOptions)

type loadOptions struct {
	failOnDangling bool
	reuse          func(rec *wire.Record) any
}

// FailOnDangling makes any dangling reference fatal. The default is to load
// everything else and report the dangling references in the result.
func FailOnDangling() LoadOption {
	return func(o *loadOptions) {
		o.failOnDangling = true
	}
}

// Reuse supplies existing live objects to mutate in place instead of
// allocating new ones. fn returns nil to allocate. A reused object's
// reference that now dangles is reset to nil.
func Reuse(fn func(rec *wire.Record) any) LoadOption {
	return func(o *loadOptions) {
		o.reuse = fn
	}
}

// LoadResult is the outcome of a load. It is returned alongside a nil error
// even when references dangle; see Err.
type LoadResult struct {
	// Objects maps every record id to its live object.
	Objects map[wire.ReferenceID]any

	// Order is the dependencies-first order records were written in.
	Order []wire.ReferenceID

	// Roots are the live objects of the payload's roots, in payload order.
	Roots []any

	// Dangling lists references that were reset because their target
	// has no record.
	Dangling []Dangling

	// Cycles lists reference cycles found while ordering.
	Cycles []Cycle
}

// Err returns a DANGLING_REFERENCE error listing the missing ids, or nil.
func (r *LoadResult) Err() error {
	if len(r.Dangling) == 0 {
		return nil
	}
	return wire.NewDangling(DanglingIDs(r.Dangling).Sorted())
}

// Loader runs the two-phase load protocol for one payload.
//
// State machine:
//
//	IDLE -> ALLOCATING -> ALLOCATED -> LINKING -> LINKED
//	any non-terminal state -> FAILED
//
// A Loader owns the pass's identity registry and is used once.
type Loader struct {
	types  *surrogate.Registry
	walker *Walker
	ids    *identity.Registry
	state  State
	opts   loadOptions

	dangling wire.IDSet
}

// NewLoader creates a loader with a fresh identity registry.
func NewLoader(types *surrogate.Registry, opts ...LoadOption) *Loader {
	l := &Loader{
		types:  types,
		walker: NewWalker(types),
		ids:    identity.New(),
	}
	for _, opt := range opts {
		opt(&l.opts)
	}
	return l
}

// State returns the loader's current state.
func (l *Loader) State() State {
	return l.state
}

// IDs returns the pass's identity registry.
func (l *Loader) IDs() *identity.Registry {
	return l.ids
}

func (l *Loader) transition(from, to State) error {
	if l.state != from {
		return fmt.Errorf("invalid loader transition: expected %s, got %s", from, l.state)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed loader transition: %s -> %s", from, to)
	}
	l.state = to
	return nil
}

func (l *Loader) fail(err error) error {
	if !IsTerminal(l.state) {
		l.state = StateFailed
	}
	return err
}

// Load runs both phases over p.
//
// TYPE_MISMATCH and FORMAT_ERROR abort the load and leave the loader
// FAILED. Dangling references are collected into the result unless
// FailOnDangling is set.
func (l *Loader) Load(p *wire.Payload) (*LoadResult, error) {
	if l.state != StateIdle {
		return nil, fmt.Errorf("loader already used (state %s)", l.state)
	}

	dangling := FindDangling(p)
	if l.opts.failOnDangling && len(dangling) > 0 {
		return nil, l.fail(wire.NewDangling(DanglingIDs(dangling).Sorted()))
	}
	l.dangling = DanglingIDs(dangling)

	order, err := l.walker.LoadOrder(p)
	if err != nil {
		return nil, l.fail(err)
	}

	if err := l.Allocate(p, order.IDs); err != nil {
		return nil, err
	}
	if err := l.Link(p, order.IDs); err != nil {
		return nil, err
	}

	result := &LoadResult{
		Objects:  make(map[wire.ReferenceID]any, len(order.IDs)),
		Order:    order.IDs,
		Dangling: dangling,
		Cycles:   order.Cycles,
	}
	for _, id := range order.IDs {
		result.Objects[id], _ = l.ids.Object(id)
	}
	for _, id := range p.Roots {
		if obj, ok := l.ids.Object(id); ok {
			result.Roots = append(result.Roots, obj)
		}
	}
	return result, nil
}

// Allocate is phase one: every record in order is written with references
// left unset and its object is bound to the record id.
func (l *Loader) Allocate(p *wire.Payload, order []wire.ReferenceID) error {
	if err := l.transition(StateIdle, StateAllocating); err != nil {
		return l.fail(err)
	}

	ctx := &surrogate.WriteContext{Phase: surrogate.PhaseAllocate, IDs: l.ids, Dangling: l.dangling}
	for _, id := range order {
		rec, ok := p.Lookup(id)
		if !ok {
			return l.fail(wire.NewUnresolved(id))
		}
		var existing any
		if l.opts.reuse != nil {
			existing = l.opts.reuse(rec)
		}
		obj, err := l.types.WriteTo(ctx, rec, existing)
		if err != nil {
			return l.fail(err)
		}
		if err := l.ids.Bind(id, obj); err != nil {
			return l.fail(err)
		}
	}

	if err := l.transition(StateAllocating, StateAllocated); err != nil {
		return l.fail(err)
	}
	return nil
}

// Link is phase two: reference slots are written, resolving ids to the
// objects allocated in phase one.
func (l *Loader) Link(p *wire.Payload, order []wire.ReferenceID) error {
	if err := l.transition(StateAllocated, StateLinking); err != nil {
		return l.fail(err)
	}

	ctx := &surrogate.WriteContext{Phase: surrogate.PhaseLink, IDs: l.ids, Dangling: l.dangling}
	for _, id := range order {
		rec, ok := p.Lookup(id)
		if !ok {
			return l.fail(wire.NewUnresolved(id))
		}
		obj, err := l.ids.ResolveID(id)
		if err != nil {
			return l.fail(err)
		}
		if _, err := l.types.WriteTo(ctx, rec, obj); err != nil {
			return l.fail(err)
		}
	}

	if err := l.transition(StateLinking, StateLinked); err != nil {
		return l.fail(err)
	}
	return nil
}
