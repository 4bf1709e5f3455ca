package taskpool

import (
	"errors"
)

// errNoReactor is returned when registering I/O interest from a context that
// was not created by a worker.
var errNoReactor = errors.New("taskpool: context has no reactor")

// Context is passed to every [Future.Poll]. It carries the waker of the task
// being polled and, when polled by a pool worker, that worker's reactor.
//
// A Context is only valid for the duration of the poll it was passed to.
type Context struct {
	waker  *Waker
	worker *worker
}

// NewContext returns a context for polling a future outside of a pool, such
// as in tests. The context has no reactor.
func NewContext(waker *Waker) *Context {
	if waker == nil {
		waker = NoopWaker()
	}
	return &Context{waker: waker}
}

// Waker returns the waker of the task being polled.
func (cx *Context) Waker() *Waker { return cx.waker }

// Reactor returns the reactor of the worker polling the task, or nil.
func (cx *Context) Reactor() *Reactor {
	if cx.worker == nil {
		return nil
	}
	return cx.worker.reactor
}

// WorkerID returns the id of the worker polling the task, or -1.
func (cx *Context) WorkerID() int {
	if cx.worker == nil {
		return -1
	}
	return cx.worker.id
}

// Pool returns the pool the task is running on, or nil.
func (cx *Context) Pool() *Pool {
	if cx.worker == nil {
		return nil
	}
	return cx.worker.pool
}

// WakeOnReadable arranges for the task to be woken once fd is readable,
// registering fd with the reactor if necessary.
func (cx *Context) WakeOnReadable(fd int) error {
	return cx.wakeOn(fd, EventRead)
}

// WakeOnWritable arranges for the task to be woken once fd is writable,
// registering fd with the reactor if necessary.
func (cx *Context) WakeOnWritable(fd int) error {
	return cx.wakeOn(fd, EventWrite)
}

func (cx *Context) wakeOn(fd int, ev IOEvents) error {
	r := cx.Reactor()
	if r == nil {
		return errNoReactor
	}
	if !r.IsRegistered(fd) {
		if err := r.Register(fd); err != nil {
			return err
		}
	}
	if ev == EventRead {
		return r.WakeOnReadable(fd, cx)
	}
	return r.WakeOnWritable(fd, cx)
}
