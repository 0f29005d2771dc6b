package deps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rtsl/internal/wire"
)

// Cycle is a strongly connected group of records: every member reaches
// every other member through references.
//
// Cycles are expected (a component and its owner reference each other);
// they are reported so callers can see why a single-pass load would fail.
type Cycle struct {
	IDs  []wire.ReferenceID `json:"ids"`  // ascending
	Path []wire.ReferenceID `json:"path"` // closed walk: [a, b, a]
}

func (c Cycle) String() string {
	parts := make([]string, len(c.Path))
	for i, id := range c.Path {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " → ")
}

// Order is a dependencies-first record order.
type Order struct {
	IDs    []wire.ReferenceID `json:"ids"`
	Cycles []Cycle            `json:"cycles"`
}

// LoadOrder orders the records of p so that every record comes after the
// records it references, except where references form a cycle. Members of
// a cycle are adjacent, in ascending id order.
//
// The algorithm:
//  1. Build the id -> referenced ids graph (dangling ids are dropped)
//  2. Find strongly connected components with Tarjan's algorithm, which
//     emits each component after every component it reaches
//  3. Report components of size > 1, or with a self-reference, as cycles
//
// Nodes and edges are visited in ascending id order, so the result is
// deterministic.
func (w *Walker) LoadOrder(p *wire.Payload) (*Order, error) {
	graph := make(refGraph, len(p.Records))
	for _, rec := range p.Records {
		deps, err := w.GetDeps(rec)
		if err != nil {
			return nil, err
		}
		edges := make([]wire.ReferenceID, 0, deps.Len())
		for _, id := range deps.Sorted() {
			if _, ok := p.Lookup(id); ok {
				edges = append(edges, id)
			}
		}
		graph[rec.ID] = edges
	}

	order := &Order{IDs: make([]wire.ReferenceID, 0, len(p.Records))}
	for _, scc := range tarjanSCC(graph, p.IDs()) {
		slices.Sort(scc)
		order.IDs = append(order.IDs, scc...)
		if len(scc) > 1 || graph.hasSelfLoop(scc[0]) {
			order.Cycles = append(order.Cycles, Cycle{IDs: scc, Path: graph.cyclePath(scc)})
		}
	}
	return order, nil
}

// refGraph maps a record id to the ids it references, ascending.
type refGraph map[wire.ReferenceID][]wire.ReferenceID

func (g refGraph) hasSelfLoop(id wire.ReferenceID) bool {
	return slices.Contains(g[id], id)
}

// tarjanSCC returns strongly connected components in reverse topological
// order: a component appears after every component it has edges to.
func tarjanSCC(g refGraph, nodes []wire.ReferenceID) [][]wire.ReferenceID {
	var (
		index   = 0
		stack   []wire.ReferenceID
		indices = make(map[wire.ReferenceID]int, len(nodes))
		lowlink = make(map[wire.ReferenceID]int, len(nodes))
		onStack = make(map[wire.ReferenceID]bool, len(nodes))
		sccs    [][]wire.ReferenceID
	)

	var strongConnect func(v wire.ReferenceID)
	strongConnect = func(v wire.ReferenceID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []wire.ReferenceID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range nodes {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its smallest id until it returns
// to the start. scc must be sorted.
func (g refGraph) cyclePath(scc []wire.ReferenceID) []wire.ReferenceID {
	start := scc[0]
	if len(scc) == 1 {
		return []wire.ReferenceID{start, start}
	}

	members := make(map[wire.ReferenceID]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}

	path := []wire.ReferenceID{start}
	visited := map[wire.ReferenceID]bool{start: true}
	current := start
	for {
		next := wire.NoReference
		for _, w := range g[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == wire.NoReference {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
