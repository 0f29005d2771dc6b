package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes serialization errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates a record's type is incompatible with the
	// live object being populated. Aborts the pass.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnresolvedReference indicates an id was resolved before its
	// object was allocated. Programmer error; aborts the pass.
	ErrCodeUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeDanglingReference indicates ids referenced by records but absent
	// from the payload. Recoverable per caller policy.
	ErrCodeDanglingReference ErrorCode = "DANGLING_REFERENCE"

	// ErrCodeFormat indicates malformed wire bytes. Aborts the pass.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"
)

// Error is a serialization error with structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Tag identifies the type involved, if any.
	Tag Tag

	// ID identifies the record involved, if any.
	ID ReferenceID

	// IDs lists the offending reference ids (dangling references).
	IDs []ReferenceID
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.ID != NoReference && e.Tag != 0 {
		fmt.Fprintf(&b, " (id=%d, tag=%d)", e.ID, e.Tag)
	} else if e.ID != NoReference {
		fmt.Fprintf(&b, " (id=%d)", e.ID)
	} else if e.Tag != 0 {
		fmt.Fprintf(&b, " (tag=%d)", e.Tag)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " ids=%v", e.IDs)
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.Code == code
	}
	return false
}

// IsTypeMismatch returns true if err is a TYPE_MISMATCH error.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsUnresolved returns true if err is an UNRESOLVED_REFERENCE error.
func IsUnresolved(err error) bool { return hasCode(err, ErrCodeUnresolvedReference) }

// IsDangling returns true if err is a DANGLING_REFERENCE error.
func IsDangling(err error) bool { return hasCode(err, ErrCodeDanglingReference) }

// IsFormatError returns true if err is a FORMAT_ERROR.
func IsFormatError(err error) bool { return hasCode(err, ErrCodeFormat) }

// Formatf creates a FORMAT_ERROR.
func Formatf(format string, args ...any) *Error {
	return &Error{Code: ErrCodeFormat, Message: fmt.Sprintf(format, args...)}
}

// NewTypeMismatch creates a TYPE_MISMATCH error for a record.
func NewTypeMismatch(id ReferenceID, tag Tag, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf(format, args...),
		ID:      id,
		Tag:     tag,
	}
}

// NewUnresolved creates an UNRESOLVED_REFERENCE error.
func NewUnresolved(id ReferenceID) *Error {
	return &Error{
		Code:    ErrCodeUnresolvedReference,
		Message: "reference resolved before its object was allocated",
		ID:      id,
	}
}

// NewDangling creates a DANGLING_REFERENCE error listing the missing ids.
func NewDangling(ids []ReferenceID) *Error {
	return &Error{
		Code:    ErrCodeDanglingReference,
		Message: fmt.Sprintf("%d referenced id(s) have no record in the payload", len(ids)),
		IDs:     ids,
	}
}
