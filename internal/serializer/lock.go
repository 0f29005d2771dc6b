package serializer

import "sync/atomic"

// GraphLock is the busy flag that enforces at most one in-flight pass per
// object graph. The zero value is unlocked.
type GraphLock struct {
	busy atomic.Bool
}

// TryAcquire marks the graph busy. It returns false, without blocking, if a
// pass already holds the lock.
func (l *GraphLock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release marks the graph idle.
func (l *GraphLock) Release() {
	l.busy.Store(false)
}

// Busy reports whether a pass holds the lock.
func (l *GraphLock) Busy() bool {
	return l.busy.Load()
}
