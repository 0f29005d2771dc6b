// Package wire provides the persistent record model and payload codec for rtsl.
//
// This package is the foundational layer. All other internal packages
// import wire; wire imports nothing internal.
//
// Key design constraints:
//   - Object pointers never appear in a Record, only ReferenceIDs (0 = none)
//   - Field slots are stable small integers, independent of field names
//   - Tags are globally unique across the type hierarchy and never reused
//   - Decoding is schema driven: unknown slots are skipped, missing slots
//     take their declared default
package wire
