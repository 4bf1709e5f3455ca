package taskpool

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// job scheduling states. A job is in exactly one of them at any instant.
const (
	// jobIdle: parked, waiting for its waker.
	jobIdle uint32 = iota
	// jobQueued: in the queue (or about to be).
	jobQueued
	// jobPolling: being polled by a worker.
	jobPolling
	// jobNotified: woken while being polled, must be requeued after.
	jobNotified
	// jobDone: completed, never polled again.
	jobDone
)

// job wraps a future submitted to a pool.
type job struct {
	future Future
	pool   *Pool
	waker  *Waker
	id     uint64
	mu     sync.Mutex
	state  atomic.Uint32
}

func newJob(p *Pool, id uint64, f Future) *job {
	j := &job{future: f, pool: p, id: id}
	j.waker = newJobWaker(j)
	j.state.Store(jobQueued)
	return j
}

// wake reschedules the job. Waking a job that is already queued, or that has
// completed, is a no-op.
func (j *job) wake() {
	for {
		switch j.state.Load() {
		case jobIdle:
			if j.state.CompareAndSwap(jobIdle, jobQueued) {
				j.pool.metrics.wakes.Add(1)
				j.pool.reschedule(j)
				return
			}
		case jobPolling:
			if j.state.CompareAndSwap(jobPolling, jobNotified) {
				j.pool.metrics.wakes.Add(1)
				return
			}
		default:
			j.pool.metrics.redundantWakes.Add(1)
			return
		}
	}
}

// beginPoll claims a queued job for polling.
func (j *job) beginPoll() bool {
	return j.state.CompareAndSwap(jobQueued, jobPolling)
}

// endPoll records the result of a poll. It reports whether the job must be
// put back on the queue.
func (j *job) endPoll(result PollResult, requeue bool) bool {
	if result == Ready {
		j.state.Store(jobDone)
		return false
	}
	if requeue {
		j.state.Store(jobQueued)
		return true
	}
	if j.state.CompareAndSwap(jobPolling, jobIdle) {
		return false
	}
	// notified during the poll
	j.state.Store(jobQueued)
	return true
}

// poll polls the future once under the job lock, converting a panic into a
// [*PanicError]. A panicking job is treated as complete.
func (j *job) poll(cx *Context) (result PollResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.future == nil {
		return Ready, nil
	}

	defer func() {
		if r := recover(); r != nil {
			result = Ready
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if result == Ready {
			j.future = nil
		}
	}()

	return j.future.Poll(cx), nil
}
