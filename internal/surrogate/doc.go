// Package surrogate defines how live host objects map to persistent records.
//
// A surrogate is a per-type descriptor with four capabilities:
//
//	ReadFrom     live object -> record (references become ids)
//	WriteTo      record -> live object (allocate phase or link phase)
//	GetDeps      ids referenced by a record
//	GetDepsFrom  ids referenced by a live object
//
// Most types are declared with Mapping, an explicit slot table of typed
// accessors. Types that need custom behavior implement Type directly,
// usually by embedding a Mapping and overriding one operation.
//
// The Registry is the ordered type-registration table and the dispatcher.
// It resolves tags and live types to surrogates, builds the flattened slot
// layouts the wire codec decodes with, and runs before/after hooks around
// every dispatched operation.
package surrogate
