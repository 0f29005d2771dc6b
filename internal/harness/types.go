package harness

import "github.com/roach88/rtsl/internal/wire"

// RecordSummary names one record of a run's payload.
type RecordSummary struct {
	ID   wire.ReferenceID `json:"id"`
	Tag  wire.Tag         `json:"tag"`
	Type string           `json:"type"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Records lists the payload's records in payload order, after drops.
	Records []RecordSummary `json:"records"`

	// Roots are the payload root ids.
	Roots []wire.ReferenceID `json:"roots"`

	// Order is the dependencies-first order the loader used.
	Order []wire.ReferenceID `json:"order"`

	// Cycles holds the ids of each reference cycle, ascending.
	Cycles [][]wire.ReferenceID `json:"cycles"`

	// Dangling holds ids the load left unresolved, ascending.
	Dangling []wire.ReferenceID `json:"dangling"`

	// Digest is the digest of the loaded payload bytes.
	Digest string `json:"digest"`

	// RoundTrip reports whether re-serializing the loaded roots produced
	// identical bytes. Not computed when records were dropped.
	RoundTrip bool `json:"round_trip"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Canonical is the canonical JSON of the loaded payload.
	Canonical []byte `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Records:  []RecordSummary{},
		Cycles:   [][]wire.ReferenceID{},
		Dangling: []wire.ReferenceID{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CountType returns the number of records of the named type.
func (r *Result) CountType(name string) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Type == name {
			n++
		}
	}
	return n
}
