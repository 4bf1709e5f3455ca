package taskpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrReentrantShutdown is returned when [Pool.Shutdown] or [Pool.Close] is
// called from one of the pool's own tasks. Shutdown is still initiated, but
// cannot be waited for.
var ErrReentrantShutdown = errors.New("taskpool: cannot wait for shutdown from one of the pool's workers")

// Pool is a fixed-size set of workers, each one OS thread, that poll
// [Future] values submitted to a shared bounded queue.
//
// Tasks that return [Pending] are parked until woken, either by readiness
// observed by the reactor of the worker that polled them, or by any other
// holder of their [Waker]. A woken task goes back on the shared queue, and
// may be polled by any worker.
//
// A Pool must be closed, see [Pool.Close] and [Pool.Shutdown].
type Pool struct {
	options  *poolOptions
	logger   *logiface.Logger[logiface.Event]
	metrics  *Metrics
	group    *errgroup.Group
	blocking *semaphore.Weighted
	waitErr  error

	// tasks submitted via Spawn, and woken tasks
	queue chan *job
	// woken tasks that did not fit in queue
	overflow       []*job
	overflowSignal chan struct{}
	workers        []*worker

	// closed once shutdown has begun and no tasks remain
	drained chan struct{}
	// closed to make workers exit regardless of remaining tasks
	terminate chan struct{}
	// closed once every worker has exited
	done chan struct{}

	config Config

	drainedOnce   sync.Once
	terminateOnce sync.Once
	started       sync.WaitGroup
	overflowMu    sync.Mutex
	// guards the transition to closing against in-flight submissions
	mu sync.RWMutex

	// tasks accepted and not yet complete
	live atomic.Int64
	// tasks in queue or overflow
	queued atomic.Int64
	// workers blocked in their reactor
	sleepers    atomic.Int64
	overflowLen atomic.Int64
	liveWorkers atomic.Int64
	nextJobID   atomic.Uint64
	closing     atomic.Bool
}

func newPool(cfg Config, opts *poolOptions) (*Pool, error) {
	p := &Pool{
		config:         cfg,
		options:        opts,
		logger:         opts.logger,
		metrics:        newMetrics(opts.metricsEnabled),
		blocking:       semaphore.NewWeighted(opts.maxBlocking),
		queue:          make(chan *job, cfg.queueSize),
		overflowSignal: make(chan struct{}, 1),
		drained:        make(chan struct{}),
		terminate:      make(chan struct{}),
		done:           make(chan struct{}),
		group:          new(errgroup.Group),
	}

	p.workers = make([]*worker, cfg.threadCount)
	for i := range p.workers {
		reactor, err := NewReactor()
		if err != nil {
			for _, w := range p.workers[:i] {
				_ = w.reactor.Close()
			}
			return nil, fmt.Errorf("taskpool: failed to create reactor: %w", err)
		}
		p.workers[i] = newWorker(p, i, reactor)
	}

	p.started.Add(len(p.workers))
	for _, w := range p.workers {
		p.group.Go(w.run)
	}
	p.started.Wait()

	go func() {
		err := p.group.Wait()
		for _, w := range p.workers {
			_ = w.reactor.Close()
		}
		p.waitErr = err
		close(p.done)
	}()

	p.logBuilt()

	return p, nil
}

// Spawn submits a task, blocking while the queue is full. It returns
// [ErrPoolClosed] if the pool is shutting down.
func (p *Pool) Spawn(f Future) error {
	return p.SpawnContext(context.Background(), f)
}

// SpawnFunc submits fn as a task, see [Pool.Spawn].
func (p *Pool) SpawnFunc(fn func(cx *Context) PollResult) error {
	if fn == nil {
		return ErrNilFuture
	}
	return p.Spawn(FutureFunc(fn))
}

// SpawnContext is like [Pool.Spawn], but stops waiting for queue capacity
// once ctx is done, returning ctx.Err().
func (p *Pool) SpawnContext(ctx context.Context, f Future) error {
	j, err := p.accept(f)
	if err != nil {
		return err
	}
	select {
	case p.queue <- j:
		p.metrics.spawned.Add(1)
		p.enqueued()
		return nil
	default:
	}
	// full, make sure the queue is being consumed
	if p.sleepers.Load() != 0 {
		p.notifySleeper()
	}
	select {
	case p.queue <- j:
	case <-ctx.Done():
		p.jobDone()
		return ctx.Err()
	case <-p.terminate:
		p.jobDone()
		return ErrPoolClosed
	}
	p.metrics.spawned.Add(1)
	p.enqueued()
	return nil
}

// TrySpawn submits a task without blocking. It returns [ErrQueueFull] if
// the queue has no free capacity.
func (p *Pool) TrySpawn(f Future) error {
	j, err := p.accept(f)
	if err != nil {
		return err
	}
	select {
	case p.queue <- j:
	default:
		p.jobDone()
		return ErrQueueFull
	}
	p.metrics.spawned.Add(1)
	p.enqueued()
	return nil
}

// accept registers a new live task, unless the pool is closing.
func (p *Pool) accept(f Future) (*job, error) {
	if f == nil {
		return nil, ErrNilFuture
	}
	p.mu.RLock()
	if p.closing.Load() {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	p.live.Add(1)
	p.mu.RUnlock()
	return newJob(p, p.nextJobID.Add(1), f), nil
}

// reschedule puts a woken task back on the queue. It never blocks.
func (p *Pool) reschedule(j *job) {
	select {
	case p.queue <- j:
	default:
		p.overflowMu.Lock()
		p.overflow = append(p.overflow, j)
		p.overflowLen.Add(1)
		p.overflowMu.Unlock()
		select {
		case p.overflowSignal <- struct{}{}:
		default:
		}
	}
	p.enqueued()
}

// enqueued must be called after a task is made visible to workers.
func (p *Pool) enqueued() {
	p.queued.Add(1)
	if p.sleepers.Load() != 0 {
		p.notifySleeper()
	}
}

// notifySleeper wakes one worker blocked in its reactor.
func (p *Pool) notifySleeper() {
	for _, w := range p.workers {
		if w.state.Load() == WorkerSleeping {
			if w.reactor.Notify() == nil {
				p.metrics.notifies.Add(1)
			}
			return
		}
	}
}

// tryDequeue returns the next queued task without blocking, or nil.
func (p *Pool) tryDequeue() *job {
	if p.overflowLen.Load() != 0 {
		p.overflowMu.Lock()
		if len(p.overflow) != 0 {
			j := p.overflow[0]
			p.overflow[0] = nil
			p.overflow = p.overflow[1:]
			if len(p.overflow) == 0 {
				p.overflow = nil
			}
			p.overflowLen.Add(-1)
			p.overflowMu.Unlock()
			p.queued.Add(-1)
			return j
		}
		p.overflowMu.Unlock()
	}
	select {
	case j := <-p.queue:
		p.queued.Add(-1)
		return j
	default:
		return nil
	}
}

// jobDone must be called exactly once per accepted task.
func (p *Pool) jobDone() {
	if p.live.Add(-1) == 0 && p.closing.Load() {
		p.signalDrained()
	}
}

func (p *Pool) signalDrained() {
	p.drainedOnce.Do(func() {
		close(p.drained)
		p.notifyAll()
	})
}

func (p *Pool) signalTerminate() {
	p.terminateOnce.Do(func() {
		close(p.terminate)
		p.notifyAll()
	})
}

func (p *Pool) notifyAll() {
	for _, w := range p.workers {
		_ = w.reactor.Notify()
	}
}

// exiting reports whether workers should stop.
func (p *Pool) exiting() bool {
	select {
	case <-p.terminate:
		return true
	case <-p.drained:
		return true
	default:
		return false
	}
}

// onWorker reports whether the caller is one of the pool's workers.
func (p *Pool) onWorker() bool {
	gid := getGoroutineID()
	for _, w := range p.workers {
		if w.goroutineID.Load() == gid {
			return true
		}
	}
	return false
}

// Shutdown stops the pool accepting tasks, then waits for every accepted
// task to complete and every worker to exit. If ctx is done first, workers
// are told to exit without waiting for the remaining tasks, and ctx.Err() is
// returned.
//
// Shutdown returns the first error a worker failed with, if any. It may be
// called more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	first := p.closing.CompareAndSwap(false, true)
	p.mu.Unlock()
	if first && p.live.Load() == 0 {
		p.signalDrained()
	}

	if p.onWorker() {
		return ErrReentrantShutdown
	}

	select {
	case <-p.done:
		if first {
			p.logShutdown(p.waitErr)
		}
		return p.waitErr
	case <-ctx.Done():
		p.signalTerminate()
		if first {
			p.logShutdown(ctx.Err())
		}
		return ctx.Err()
	}
}

// Close shuts the pool down, blocking until every accepted task has
// completed and every worker has exited.
func (p *Pool) Close() error {
	return p.Shutdown(context.Background())
}

// Done returns a channel that is closed once every worker has exited.
func (p *Pool) Done() <-chan struct{} { return p.done }

// NumWorkers returns the configured number of workers.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// LiveWorkers returns the number of workers that have started and not yet
// exited.
func (p *Pool) LiveWorkers() int { return int(p.liveWorkers.Load()) }

// WorkerStates returns the current state of each worker, indexed by id.
func (p *Pool) WorkerStates() []WorkerState {
	states := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		states[i] = w.state.Load()
	}
	return states
}

// Pending returns the number of accepted tasks that have not completed.
func (p *Pool) Pending() int { return int(p.live.Load()) }

// Queued returns the approximate number of tasks waiting to be polled.
func (p *Pool) Queued() int { return int(max(p.queued.Load(), 0)) }

// StackSize returns the configured nominal worker stack size.
func (p *Pool) StackSize() int { return p.config.stackSize }

// QueueSize returns the capacity of the shared queue.
func (p *Pool) QueueSize() int { return p.config.queueSize }

// Metrics returns a snapshot of the pool's metrics.
func (p *Pool) Metrics() MetricsSnapshot { return p.metrics.Snapshot() }
