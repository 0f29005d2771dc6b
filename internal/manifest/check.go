package manifest

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/rtsl/internal/surrogate"
	"github.com/roach88/rtsl/internal/wire"
)

// Severity ranks a drift.
type Severity string

const (
	// SeverityError drift makes old payloads decode wrongly.
	SeverityError Severity = "error"
	// SeverityWarning drift loses data from old payloads but still decodes.
	SeverityWarning Severity = "warning"
	// SeverityInfo drift is a compatible addition.
	SeverityInfo Severity = "info"
)

// Drift codes.
const (
	CodeTagReassigned   = "TAG_REASSIGNED"
	CodeTypeRemoved     = "TYPE_REMOVED"
	CodeBaseChanged     = "BASE_CHANGED"
	CodeSlotKindChanged = "SLOT_KIND_CHANGED"
	CodeSlotRemoved     = "SLOT_REMOVED"
	CodeTypeAdded       = "TYPE_ADDED"
	CodeSlotAdded       = "SLOT_ADDED"
)

var severities = map[string]Severity{
	CodeTagReassigned:   SeverityError,
	CodeTypeRemoved:     SeverityError,
	CodeBaseChanged:     SeverityError,
	CodeSlotKindChanged: SeverityError,
	CodeSlotRemoved:     SeverityWarning,
	CodeTypeAdded:       SeverityInfo,
	CodeSlotAdded:       SeverityInfo,
}

// Drift is one difference between a manifest and a registry.
type Drift struct {
	Code     string    `json:"code"`
	Severity Severity  `json:"severity"`
	Tag      wire.Tag  `json:"tag"`
	Slot     wire.Slot `json:"slot,omitempty"`
	Message  string    `json:"message"`
}

// Report is the result of Check, ordered by tag, slot and code.
type Report struct {
	Drifts []Drift `json:"drifts"`
}

// OK reports whether the report has no error-severity drift.
func (r *Report) OK() bool {
	return r.Count(SeverityError) == 0
}

// Count returns the number of drifts of severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, d := range r.Drifts {
		if d.Severity == s {
			n++
		}
	}
	return n
}

func (r *Report) add(code string, tag wire.Tag, slot wire.Slot, format string, args ...any) {
	r.Drifts = append(r.Drifts, Drift{
		Code:     code,
		Severity: severities[code],
		Tag:      tag,
		Slot:     slot,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Check compares a pinned manifest with the registry's current table.
func Check(m *Manifest, r *surrogate.Registry) *Report {
	current := FromRegistry(r)
	now := make(map[wire.Tag]TypeEntry, len(current.Types))
	for _, t := range current.Types {
		now[t.Tag] = t
	}

	rep := &Report{}
	pinned := make(map[wire.Tag]bool, len(m.Types))
	for _, old := range m.Types {
		pinned[old.Tag] = true
		cur, ok := now[old.Tag]
		if !ok {
			rep.add(CodeTypeRemoved, old.Tag, 0, "%s (tag %d) is no longer registered", old.Name, old.Tag)
			continue
		}
		if cur.Name != old.Name || cur.Value != old.Value {
			rep.add(CodeTagReassigned, old.Tag, 0, "tag %d was %s, now %s", old.Tag, describe(old), describe(cur))
			continue
		}
		if cur.Base != old.Base {
			rep.add(CodeBaseChanged, old.Tag, 0, "%s base changed from %d to %d", old.Name, old.Base, cur.Base)
		}
		checkFields(rep, old, cur)
	}

	for _, cur := range current.Types {
		if !pinned[cur.Tag] {
			rep.add(CodeTypeAdded, cur.Tag, 0, "%s (tag %d) is new", cur.Name, cur.Tag)
		}
	}

	slices.SortFunc(rep.Drifts, func(a, b Drift) int {
		return cmp.Or(
			cmp.Compare(a.Tag, b.Tag),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.Code, b.Code),
		)
	})
	return rep
}

func checkFields(rep *Report, old, cur TypeEntry) {
	now := make(map[wire.Slot]FieldEntry, len(cur.Fields))
	for _, f := range cur.Fields {
		now[f.Slot] = f
	}
	pinned := make(map[wire.Slot]bool, len(old.Fields))

	for _, of := range old.Fields {
		pinned[of.Slot] = true
		cf, ok := now[of.Slot]
		switch {
		case !ok:
			rep.add(CodeSlotRemoved, old.Tag, of.Slot, "%s.%s (slot %d) was removed; old payloads skip it", old.Name, of.Name, of.Slot)
		case cf.Kind != of.Kind || cf.Elem != of.Elem:
			rep.add(CodeSlotKindChanged, old.Tag, of.Slot, "%s slot %d changed from %s to %s", old.Name, of.Slot, fieldKind(of), fieldKind(cf))
		}
	}
	for _, cf := range cur.Fields {
		if !pinned[cf.Slot] {
			rep.add(CodeSlotAdded, cur.Tag, cf.Slot, "%s.%s (slot %d) is new", cur.Name, cf.Name, cf.Slot)
		}
	}
}

func describe(t TypeEntry) string {
	if t.Value {
		return "value type " + t.Name
	}
	return t.Name
}

func fieldKind(f FieldEntry) string {
	if f.Elem != 0 {
		return fmt.Sprintf("%s<%d>", f.Kind, f.Elem)
	}
	return f.Kind
}
