package wire

import (
	"slices"
)

// Record is the persistent representation of one live object.
type Record struct {
	ID     ReferenceID `json:"id"`
	Tag    Tag         `json:"tag"`
	Fields Fields      `json:"fields"`
}

// Deps returns every non-zero reference held by the record.
func (r *Record) Deps() IDSet {
	deps := NewIDSet()
	r.Fields.References(func(_ Slot, id ReferenceID) {
		deps.Add(id)
	})
	return deps
}

// Payload is one serialized object graph: the declared roots plus the
// records reachable from them, ordered by id.
type Payload struct {
	Version int
	Roots   []ReferenceID
	Records []*Record

	index map[ReferenceID]*Record
}

// NewPayload creates a payload at the current format version.
// Records are sorted by id.
func NewPayload(roots []ReferenceID, records []*Record) *Payload {
	p := &Payload{
		Version: FormatVersion,
		Roots:   slices.Clone(roots),
		Records: slices.Clone(records),
	}
	p.sort()
	return p
}

func (p *Payload) sort() {
	slices.SortFunc(p.Records, func(a, b *Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	p.index = nil
}

// Lookup returns the record with the given id.
func (p *Payload) Lookup(id ReferenceID) (*Record, bool) {
	if p.index == nil || len(p.index) != len(p.Records) {
		p.index = make(map[ReferenceID]*Record, len(p.Records))
		for _, rec := range p.Records {
			p.index[rec.ID] = rec
		}
	}
	rec, ok := p.index[id]
	return rec, ok
}

// IDs returns the record ids in ascending order.
func (p *Payload) IDs() []ReferenceID {
	ids := make([]ReferenceID, len(p.Records))
	for i, rec := range p.Records {
		ids[i] = rec.ID
	}
	return ids
}

// IDSet is a set of reference ids. The null reference is never a member.
type IDSet map[ReferenceID]struct{}

// NewIDSet creates a set holding the given ids.
func NewIDSet(ids ...ReferenceID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Adding NoReference is a no-op.
func (s IDSet) Add(id ReferenceID) {
	if id == NoReference {
		return
	}
	s[id] = struct{}{}
}

// Has reports membership.
func (s IDSet) Has(id ReferenceID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Union adds every id of o to s.
func (s IDSet) Union(o IDSet) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []ReferenceID {
	ids := make([]ReferenceID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
