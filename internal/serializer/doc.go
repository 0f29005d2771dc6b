// Package serializer is the host-facing surface of rtsl: it turns root live
// objects into payload bytes and back.
//
// Each Serialize or Deserialize call is one pass with its own identity
// registry. Passes are synchronous and never suspend. The context is
// checked once, before the pass starts; a pass that has started runs to
// completion.
//
// Two passes must not run over the same live graph at once. Hosts guard
// whole save and load operations with a GraphLock.
package serializer
