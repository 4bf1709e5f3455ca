package taskpool

import (
	"fmt"
)

const (
	// DefaultThreadCount is the number of workers of a default pool.
	DefaultThreadCount = 1
	// DefaultStackSize is the nominal worker stack size, 16 MiB.
	DefaultStackSize = 16 << 20
	// DefaultQueueSize is the capacity of the shared task queue.
	DefaultQueueSize = 1024
)

// Config describes a pool to build. It is an immutable value; each setter
// returns a modified copy.
//
//	pool, err := taskpool.NewConfig().
//		ThreadCount(4).
//		QueueSize(4096).
//		Build(taskpool.WithLogger(logger))
type Config struct {
	threadCount int
	stackSize   int
	queueSize   int
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		threadCount: DefaultThreadCount,
		stackSize:   DefaultStackSize,
		queueSize:   DefaultQueueSize,
	}
}

// ThreadCount sets the number of worker threads, which must be at least 1.
func (c Config) ThreadCount(n int) Config {
	c.threadCount = n
	return c
}

// StackSize sets the nominal per-worker stack size, in bytes. Go manages
// goroutine stacks itself, so the value is validated and reported, but does
// not bound the stack of the worker.
func (c Config) StackSize(bytes int) Config {
	c.stackSize = bytes
	return c
}

// QueueSize sets the capacity of the shared task queue. Submission blocks
// while the queue is full. Zero makes every submission a rendezvous with a
// worker.
func (c Config) QueueSize(n int) Config {
	c.queueSize = n
	return c
}

// String implements [fmt.Stringer].
func (c Config) String() string {
	return fmt.Sprintf("taskpool.Config{threads=%d, stack=%d, queue=%d}", c.threadCount, c.stackSize, c.queueSize)
}

func (c Config) validate() error {
	if c.threadCount < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidThreadCount, c.threadCount)
	}
	if c.stackSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStackSize, c.stackSize)
	}
	if c.queueSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueSize, c.queueSize)
	}
	return nil
}

// Build validates the configuration and starts a pool. Every worker is
// running by the time Build returns.
func (c Config) Build(opts ...Option) (*Pool, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	options, err := resolvePoolOptions(opts)
	if err != nil {
		return nil, err
	}
	return newPool(c, options)
}

// MustBuild is like [Config.Build] but panics on error.
func (c Config) MustBuild(opts ...Option) *Pool {
	p, err := c.Build(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// New builds a pool from the default configuration.
func New(opts ...Option) (*Pool, error) {
	return NewConfig().Build(opts...)
}
