package pipeline

import "sync/atomic"

// RunLock provides non-blocking lock semantics so a second ProcessCorpus
// call fails fast instead of queueing behind a long run.
type RunLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *RunLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called after a successful
// TryAcquire.
func (l *RunLock) Release() {
	l.state.Store(0)
}
