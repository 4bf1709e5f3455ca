package taskpool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned when work is submitted to a pool that has
	// begun shutting down.
	ErrPoolClosed = errors.New("taskpool: pool is closed")

	// ErrQueueFull is returned by [Pool.TrySpawn] when the bounded queue has
	// no free capacity.
	ErrQueueFull = errors.New("taskpool: queue is full")

	// ErrInvalidThreadCount is returned when a pool is configured with fewer
	// than one worker.
	ErrInvalidThreadCount = errors.New("taskpool: thread count must be at least 1")

	// ErrInvalidQueueSize is returned when a pool is configured with a
	// negative queue size.
	ErrInvalidQueueSize = errors.New("taskpool: queue size must not be negative")

	// ErrInvalidStackSize is returned when a pool is configured with a
	// non-positive stack size.
	ErrInvalidStackSize = errors.New("taskpool: stack size must be positive")

	// ErrReentrantBlocking is returned when [SpawnBlocking] is called from a
	// worker of the same pool while inline blocking is enabled. Waiting there
	// would block the worker that has to run the closure.
	ErrReentrantBlocking = errors.New("taskpool: cannot block on the pool from one of its workers")

	// ErrNilFuture is returned when a nil future is submitted.
	ErrNilFuture = errors.New("taskpool: nil future")
)

var (
	// ErrFDOutOfRange is returned when a file descriptor is negative.
	ErrFDOutOfRange = errors.New("taskpool: fd out of range")

	// ErrFDAlreadyRegistered is returned when an FD is registered twice.
	ErrFDAlreadyRegistered = errors.New("taskpool: fd already registered")

	// ErrFDNotRegistered is returned when an FD is not registered.
	ErrFDNotRegistered = errors.New("taskpool: fd not registered")

	// ErrReactorClosed is returned when operating on a closed reactor.
	ErrReactorClosed = errors.New("taskpool: reactor closed")

	// ErrUnsupportedPlatform is returned by [NewReactor] on platforms without
	// a readiness multiplexer implementation.
	ErrUnsupportedPlatform = errors.New("taskpool: reactor not supported on this platform")
)

// PanicError is the error a task completes with when its poll panicked.
type PanicError struct {
	// Value is the value passed to panic.
	Value any
	// Stack is the stack trace of the panicking goroutine.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("taskpool: task panicked: %v", e.Value)
}

// Unwrap returns Value if it is an error, allowing [errors.Is] and
// [errors.As] to match through a panic.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
