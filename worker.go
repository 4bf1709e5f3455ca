package taskpool

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// worker is one OS thread, alternating between polling queued tasks and
// servicing its reactor.
type worker struct {
	pool    *Pool
	reactor *Reactor
	events  *Events
	logger  *logiface.Logger[logiface.Event]
	cx      Context
	state   workerState
	// of the worker goroutine, once started
	goroutineID atomic.Uint64
	id          int
}

func newWorker(p *Pool, id int, reactor *Reactor) *worker {
	w := &worker{
		pool:    p,
		id:      id,
		reactor: reactor,
		events:  NewEvents(p.options.eventBufferSize),
		logger:  workerLogger(p.logger, id),
	}
	w.cx.worker = w
	return w
}

// run is the worker loop. It returns once the pool has drained after
// shutdown, or has been told to terminate, or if the reactor fails.
func (w *worker) run() (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p := w.pool
	w.goroutineID.Store(getGoroutineID())
	w.state.Store(WorkerRunning)
	p.liveWorkers.Add(1)
	p.started.Done()
	w.logStart()

	defer func() {
		w.state.Store(WorkerTerminated)
		p.liveWorkers.Add(-1)
		w.logExit(err)
	}()

	for {
		exhausted := w.drain()

		if p.exiting() {
			return nil
		}

		if w.reactor.WaitingOnEvents() {
			timeout := p.options.pollTimeout
			if exhausted {
				timeout = 0
			}
			if err := w.service(timeout); err != nil {
				return err
			}
			continue
		}

		if !exhausted {
			w.idle()
		}
	}
}

// drain polls queued tasks until the queue is empty, reporting whether it
// stopped early due to the drain budget.
func (w *worker) drain() bool {
	p := w.pool
	for range p.options.drainBudget {
		j := p.tryDequeue()
		if j == nil {
			return false
		}
		if !w.runJob(j) && p.options.requeuePending {
			// give the reactor a turn before the task comes around again
			return true
		}
	}
	return true
}

// idle blocks until there may be queued work, or the pool is exiting.
func (w *worker) idle() {
	p := w.pool
	w.state.Store(WorkerIdle)
	select {
	case j := <-p.queue:
		p.queued.Add(-1)
		w.state.Store(WorkerRunning)
		w.runJob(j)
		return
	case <-p.overflowSignal:
	case <-p.drained:
	case <-p.terminate:
	}
	w.state.Store(WorkerRunning)
}

// service waits on the reactor, then wakes every task with satisfied
// interest.
func (w *worker) service(timeout time.Duration) error {
	p := w.pool

	if timeout != 0 {
		w.state.Store(WorkerSleeping)
		p.sleepers.Add(1)
		// paired with Pool.enqueued, one side always observes the other
		if p.queued.Load() > 0 || p.exiting() {
			timeout = 0
		}
	}

	err := w.reactor.Wait(w.events, timeout)

	if w.state.TryTransition(WorkerSleeping, WorkerRunning) {
		p.sleepers.Add(-1)
	}
	p.metrics.reactorWaits.Add(1)

	if err != nil {
		return err
	}

	p.metrics.ioEvents.Add(uint64(w.events.Len()))
	wakers := w.reactor.Drain(w.events)
	p.metrics.ioWakes.Add(uint64(len(wakers)))
	for _, waker := range wakers {
		waker.Wake()
	}
	return nil
}

// runJob polls j once, reporting whether it completed.
func (w *worker) runJob(j *job) bool {
	p := w.pool
	if !j.beginPoll() {
		return true
	}

	w.cx.waker = j.waker
	var start time.Time
	if p.metrics.latency != nil {
		start = time.Now()
	}

	result, err := j.poll(&w.cx)

	if p.metrics.latency != nil {
		p.metrics.recordPoll(time.Since(start))
	}
	w.cx.waker = nil
	p.metrics.polls.Add(1)

	if err != nil {
		w.handlePanic(j, err.(*PanicError))
	}

	requeue := j.endPoll(result, p.options.requeuePending)
	if result == Ready {
		p.metrics.completed.Add(1)
		p.jobDone()
		return true
	}

	p.metrics.pending.Add(1)
	if requeue {
		p.metrics.requeued.Add(1)
		p.reschedule(j)
	}
	return false
}

func (w *worker) handlePanic(j *job, perr *PanicError) {
	w.pool.metrics.panics.Add(1)
	w.logPanic(j, perr)
	if handler := w.pool.options.panicHandler; handler != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Err().
						Any("panic", r).
						Log("panic handler panicked")
				}
			}()
			handler(perr)
		}()
	}
}
