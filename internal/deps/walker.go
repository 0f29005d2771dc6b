package deps

import (
	"cmp"
	"slices"

	"github.com/roach88/rtsl/internal/identity"
	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

// Walker computes reference sets through the surrogate registry, so
// dependency hooks apply.
type Walker struct {
	types *surrogate.Registry
}

// NewWalker creates a walker over the given type registry.
func NewWalker(types *surrogate.Registry) *Walker {
	return &Walker{types: types}
}

// GetDeps returns the ids referenced by rec. Duplicates collapse and the
// null reference is excluded.
func (w *Walker) GetDeps(rec *wire.Record) (wire.IDSet, error) {
	ctx := surrogate.NewDepsContext(nil)
	if err := w.types.GetDeps(ctx, rec); err != nil {
		return nil, err
	}
	return ctx.Deps, nil
}

// GetDepsFrom returns the ids of the objects obj references in its current
// state. Objects seen for the first time are assigned ids in ids.
func (w *Walker) GetDepsFrom(ids *identity.Registry, obj any) (wire.IDSet, error) {
	ctx := surrogate.NewDepsContext(ids)
	if err := w.types.GetDepsFrom(ctx, obj); err != nil {
		return nil, err
	}
	return ctx.Deps, nil
}

// Reachable assigns ids to every object reachable from roots, breadth
// first, and returns the root ids in argument order. Ids are assigned on
// first visit, so traversal order is: roots, then their references in slot
// order, level by level. Repeated roots share one id.
func (w *Walker) Reachable(ids *identity.Registry, roots ...any) ([]wire.ReferenceID, error) {
	var queue []any
	rootIDs := make([]wire.ReferenceID, 0, len(roots))
	for _, root := range roots {
		id, fresh := ids.Assign(root)
		if id == wire.NoReference {
			continue
		}
		if !slices.Contains(rootIDs, id) {
			rootIDs = append(rootIDs, id)
		}
		if fresh {
			queue = append(queue, root)
		}
	}

	ctx := surrogate.NewDepsContext(ids)
	ctx.Discovered = func(obj any) {
		queue = append(queue, obj)
	}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if err := w.types.GetDepsFrom(ctx, obj); err != nil {
			return nil, err
		}
	}
	return rootIDs, nil
}

// Closure returns every id transitively referenced from the given records,
// following references through the payload. Dangling ids are included but
// not followed. The starting ids are included only if something in the
// closure references them.
func (w *Walker) Closure(p *wire.Payload, from ...wire.ReferenceID) (wire.IDSet, error) {
	out := wire.NewIDSet()
	visited := wire.NewIDSet()
	queue := slices.Clone(from)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited.Has(id) {
			continue
		}
		visited.Add(id)

		rec, ok := p.Lookup(id)
		if !ok {
			continue
		}
		deps, err := w.GetDeps(rec)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps.Sorted() {
			out.Add(dep)
			if !visited.Has(dep) {
				queue = append(queue, dep)
			}
		}
	}
	return out, nil
}

// Dangling is a reference to an id that has no record in the payload.
// From is NoReference when a payload root itself is missing.
type Dangling struct {
	From   wire.ReferenceID `json:"from"`
	Slot   wire.Slot        `json:"slot"`
	Target wire.ReferenceID `json:"target"`
}

// FindDangling lists every dangling reference in p, ordered by source id,
// slot and target. Repeats of the same reference collapse.
func FindDangling(p *wire.Payload) []Dangling {
	seen := make(map[Dangling]bool)
	var out []Dangling
	add := func(d Dangling) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}

	for _, root := range p.Roots {
		if _, ok := p.Lookup(root); !ok && root != wire.NoReference {
			add(Dangling{Target: root})
		}
	}
	for _, rec := range p.Records {
		rec.Fields.References(func(slot wire.Slot, id wire.ReferenceID) {
			if _, ok := p.Lookup(id); !ok {
				add(Dangling{From: rec.ID, Slot: slot, Target: id})
			}
		})
	}

	slices.SortFunc(out, func(a, b Dangling) int {
		return cmp.Or(
			cmp.Compare(a.From, b.From),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.Target, b.Target),
		)
	})
	return out
}

// DanglingIDs returns the distinct missing ids of a dangling list.
func DanglingIDs(list []Dangling) wire.IDSet {
	ids := wire.NewIDSet()
	for _, d := range list {
		ids.Add(d.Target)
	}
	return ids
}

// Prune returns a payload holding only the records reachable from p's
// roots (roots included). A payload without roots is returned unchanged.
func (w *Walker) Prune(p *wire.Payload) (*wire.Payload, error) {
	if len(p.Roots) == 0 {
		return p, nil
	}
	keep, err := w.Closure(p, p.Roots...)
	if err != nil {
		return nil, err
	}
	for _, root := range p.Roots {
		keep.Add(root)
	}

	records := make([]*wire.Record, 0, len(p.Records))
	for _, rec := range p.Records {
		if keep.Has(rec.ID) {
			records = append(records, rec)
		}
	}
	pruned := wire.NewPayload(p.Roots, records)
	pruned.Version = p.Version
	return pruned, nil
}
