// Package store provides SQLite-backed storage for an rtsl project: a tree
// of folders and saved scenes.
//
// Each scene item owns one payload blob together with its digest, format
// version and record count. Saving over an existing scene replaces the blob
// and bumps its revision.
//
// # Naming
//
// Item names are compared case-insensitively: the stored name_key is the
// NFC-normalized, Unicode case-folded name. A folder and a scene may share a
// name; two items of the same kind in one folder may not.
//
// # Ordering
//
// Listings return folders before scenes, each sorted by name_key and then
// by name (COLLATE BINARY), so results are stable across runs.
//
// # Connections
//
// Every connection runs in WAL mode with synchronous=NORMAL, waits up to
// five seconds on a locked database and enforces foreign keys, so deleting a
// folder deletes its contents. PRAGMA user_version records the schema
// version; Open refuses a project stamped by a newer build.
package store
