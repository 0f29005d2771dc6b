// Package project saves and loads scenes into a project store.
//
// It owns the rules around a save: scene names are validated, an existing
// scene of the same name is replaced only when the caller confirms, and
// only one save or load runs at a time.
package project
