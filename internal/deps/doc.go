// Package deps walks references between records and live objects and runs
// the two-phase load protocol.
//
// Save direction: Reachable walks live objects breadth-first from the save
// roots, assigning ids on first visit, so only reachable objects become
// records.
//
// Load direction: a Loader allocates every record first (references left
// unset), then links references once every id has an object. The split is
// what lets cyclic and forward references load at all.
//
// References to ids that have no record are dangling. They are collected,
// never silently turned into nil links; the caller decides whether that is
// fatal.
package deps
