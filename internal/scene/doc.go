// Package scene is a small live object model of a 3-D scene and its
// persistent type table.
//
// It exists to exercise the serializer end to end: abstract base types,
// component back-references that form cycles, shared assets, embedded value
// types, bulk buffers and a hand-written surrogate (TerrainData).
//
// Scenes can be described in YAML and built into live graphs with LoadFile
// and Build.
package scene
