package taskpool

import (
	"sync/atomic"
)

// WorkerState is the lifecycle state of a pool worker.
type WorkerState uint64

const (
	// WorkerStarting is the state before the worker goroutine has started.
	WorkerStarting WorkerState = iota
	// WorkerRunning indicates the worker is polling tasks.
	WorkerRunning
	// WorkerIdle indicates the worker is blocked on the shared queue.
	WorkerIdle
	// WorkerSleeping indicates the worker is blocked in its reactor.
	WorkerSleeping
	// WorkerTerminated indicates the worker has exited.
	WorkerTerminated
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerStarting:
		return "Starting"
	case WorkerRunning:
		return "Running"
	case WorkerIdle:
		return "Idle"
	case WorkerSleeping:
		return "Sleeping"
	case WorkerTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// workerState is a lock-free state cell, padded to its own cache line as it
// is read by submitters looking for a worker to notify.
type workerState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte //nolint:unused
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte //nolint:unused
}

func (s *workerState) Load() WorkerState {
	return WorkerState(s.v.Load())
}

func (s *workerState) Store(state WorkerState) {
	s.v.Store(uint64(state))
}

// TryTransition atomically moves from one state to another, reporting
// whether it succeeded.
func (s *workerState) TryTransition(from, to WorkerState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

const (
	// sizeOfCacheLine covers the 128 byte lines of Apple Silicon and other
	// ARM64, and is twice that of x86-64.
	sizeOfCacheLine = 128

	sizeOfAtomicUint64 = 8
)
