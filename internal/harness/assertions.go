package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rtsl/internal/wire"
)

// AssertionError is returned when an assertion fails.
// It carries the payload's records to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Records  []RecordSummary // Payload records for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Records) > 0 {
		fmt.Fprintf(&buf, "\nRecords:\n")
		for _, r := range e.Records {
			fmt.Fprintf(&buf, "  [%d] %s (tag %d)\n", r.ID, r.Type, r.Tag)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRecordCount:
		return expectCount(result, a.Type, "records", a.Count, len(result.Records))
	case AssertTypeCount:
		return expectCount(result, a.Type, a.RecordType+" records", a.Count, result.CountType(a.RecordType))
	case AssertCycleCount:
		return expectCount(result, a.Type, "cycles", a.Count, len(result.Cycles))
	case AssertDangling:
		return assertDangling(result, a)
	case AssertRoundTrip:
		if !result.RoundTrip {
			return &AssertionError{
				Type:     a.Type,
				Expected: "re-serialized bytes identical to the payload",
				Actual:   "bytes differ",
				Records:  result.Records,
			}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func expectCount(result *Result, typ, what string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Records:  result.Records,
	}
}

// assertDangling compares dangling ids as sets.
func assertDangling(result *Result, a Assertion) error {
	want := make([]wire.ReferenceID, len(a.IDs))
	for i, id := range a.IDs {
		want[i] = wire.ReferenceID(id)
	}
	slices.Sort(want)
	want = slices.Compact(want)

	if slices.Equal(want, result.Dangling) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("dangling ids %v", want),
		Actual:   fmt.Sprintf("dangling ids %v", result.Dangling),
		Records:  result.Records,
	}
}
