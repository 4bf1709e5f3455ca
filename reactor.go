//go:build linux || darwin

package taskpool

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// fdEntry holds the wakers pending on one registered file descriptor.
type fdEntry struct {
	readers []*Waker
	writers []*Waker
	// interest currently armed in the OS poller
	armed IOEvents
}

func (x *fdEntry) interest() (events IOEvents) {
	if len(x.readers) != 0 {
		events |= EventRead
	}
	if len(x.writers) != 0 {
		events |= EventWrite
	}
	return
}

// Reactor bridges OS readiness notifications to pending [Waker] values.
//
// Interest is one-shot: once readiness for a file descriptor has been
// observed, the wakers waiting on it are removed and returned by
// [Reactor.Drain], and must register again to be woken again.
//
// A Reactor is owned by a single goroutine. Only [Reactor.Notify] and
// [Reactor.Close] may be called concurrently with the other methods.
type Reactor struct {
	fds     map[int]*fdEntry
	poller  poller
	waiting int
	wakeFd  int
	// same as wakeFd when backed by an eventfd
	wakeWriteFd int
	// held for reading while writing to wakeWriteFd
	notifyMu      sync.RWMutex
	notifyPending atomic.Bool
	closed        atomic.Bool
}

// NewReactor creates a reactor backed by the platform poller.
func NewReactor() (*Reactor, error) {
	r := &Reactor{fds: make(map[int]*fdEntry)}
	if err := r.poller.init(); err != nil {
		return nil, err
	}
	wakeFd, wakeWriteFd, err := createWakeFd()
	if err != nil {
		_ = r.poller.close()
		return nil, err
	}
	r.wakeFd, r.wakeWriteFd = wakeFd, wakeWriteFd
	if err := r.poller.addWake(wakeFd); err != nil {
		r.closeWakeFd()
		_ = r.poller.close()
		return nil, err
	}
	return r, nil
}

// Register adds fd to the reactor. No interest is armed until a waker is
// registered via [Reactor.WakeOnReadable] or [Reactor.WakeOnWritable].
func (r *Reactor) Register(fd int) error {
	if r.closed.Load() {
		return ErrReactorClosed
	}
	if fd < 0 || fd == r.wakeFd || fd == r.wakeWriteFd {
		return ErrFDOutOfRange
	}
	if _, ok := r.fds[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	if err := r.poller.add(fd); err != nil {
		return err
	}
	r.fds[fd] = &fdEntry{}
	return nil
}

// Deregister removes fd from the reactor, dropping any pending wakers. It
// must be called before fd is closed.
func (r *Reactor) Deregister(fd int) error {
	if r.closed.Load() {
		return ErrReactorClosed
	}
	e, ok := r.fds[fd]
	if !ok {
		return ErrFDNotRegistered
	}
	delete(r.fds, fd)
	r.waiting -= len(e.readers) + len(e.writers)
	return r.poller.del(fd, e.armed)
}

// IsRegistered reports whether fd is registered.
func (r *Reactor) IsRegistered(fd int) bool {
	_, ok := r.fds[fd]
	return ok
}

// WakeOnReadable arranges for the waker of cx to be woken once fd is
// readable, or reports an error or hangup.
func (r *Reactor) WakeOnReadable(fd int, cx *Context) error {
	return r.wakeOn(fd, cx, EventRead)
}

// WakeOnWritable arranges for the waker of cx to be woken once fd is
// writable, or reports an error or hangup.
func (r *Reactor) WakeOnWritable(fd int, cx *Context) error {
	return r.wakeOn(fd, cx, EventWrite)
}

func (r *Reactor) wakeOn(fd int, cx *Context, ev IOEvents) error {
	if r.closed.Load() {
		return ErrReactorClosed
	}
	e, ok := r.fds[fd]
	if !ok {
		return ErrFDNotRegistered
	}
	waker := cx.Waker().Clone()
	if ev == EventRead {
		e.readers = append(e.readers, waker)
	} else {
		e.writers = append(e.writers, waker)
	}
	r.waiting++
	// the fd may have been closed and its number reused since it was last
	// armed, so the OS interest is always refreshed
	if err := r.arm(fd, e, true); err != nil {
		if ev == EventRead {
			e.readers = e.readers[:len(e.readers)-1]
		} else {
			e.writers = e.writers[:len(e.writers)-1]
		}
		r.waiting--
		return err
	}
	return nil
}

// arm synchronises the OS interest of fd with its pending wakers. Unless
// refresh is set, nothing is done if the armed interest already matches.
func (r *Reactor) arm(fd int, e *fdEntry, refresh bool) error {
	want := e.interest()
	if want == e.armed && !refresh {
		return nil
	}
	armed, err := r.poller.arm(fd, want, e.armed, refresh)
	if err != nil {
		return err
	}
	e.armed = armed
	return nil
}

// WaitingOnEvents reports whether any registered fd has a pending waker.
func (r *Reactor) WaitingOnEvents() bool {
	return r.waiting > 0
}

// Wait blocks until at least one registered fd is ready, [Reactor.Notify]
// is called, or timeout elapses. A negative timeout blocks indefinitely. A
// wait interrupted by a signal returns no events and no error.
func (r *Reactor) Wait(events *Events, timeout time.Duration) error {
	if r.closed.Load() {
		return ErrReactorClosed
	}
	events.ready = events.ready[:0]
	n, err := r.poller.wait(events.raw, timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		ev := r.poller.decode(&events.raw[i])
		if ev.FD == r.wakeFd {
			drainWakeFd(r.wakeFd)
			r.notifyPending.Store(false)
			continue
		}
		events.ready = append(events.ready, ev)
	}
	return nil
}

// Drain consumes the events of the last wait, returning every waker pending
// on a ready fd. Wakers that were not satisfied remain armed.
func (r *Reactor) Drain(events *Events) []*Waker {
	var wakers []*Waker
	for _, ev := range events.ready {
		e, ok := r.fds[ev.FD]
		if !ok {
			continue
		}
		e.armed = disarmAfter(e.armed, ev.Events)
		if ev.Events&readWakeEvents != 0 && len(e.readers) != 0 {
			wakers = append(wakers, e.readers...)
			r.waiting -= len(e.readers)
			e.readers = nil
		}
		if ev.Events&writeWakeEvents != 0 && len(e.writers) != 0 {
			wakers = append(wakers, e.writers...)
			r.waiting -= len(e.writers)
			e.writers = nil
		}
		if err := r.arm(ev.FD, e, false); err != nil {
			// wake the rest, they will observe the failure on their next attempt
			wakers = append(wakers, e.readers...)
			wakers = append(wakers, e.writers...)
			r.waiting -= len(e.readers) + len(e.writers)
			e.readers, e.writers = nil, nil
		}
	}
	events.ready = events.ready[:0]
	return wakers
}

// Notify interrupts a blocked [Reactor.Wait]. It is safe for concurrent use.
// Notifications are coalesced until the wait observes them.
func (r *Reactor) Notify() error {
	r.notifyMu.RLock()
	defer r.notifyMu.RUnlock()
	if r.closed.Load() {
		return ErrReactorClosed
	}
	if !r.notifyPending.CompareAndSwap(false, true) {
		return nil
	}
	var buf [8]byte
	buf[0] = 1
	if _, err := unix.Write(r.wakeWriteFd, buf[:]); err != nil && err != unix.EAGAIN {
		r.notifyPending.Store(false)
		return err
	}
	return nil
}

// Close releases the OS resources of the reactor. Pending wakers are dropped.
// Registered fds are not closed. It must not be called during a wait.
func (r *Reactor) Close() error {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.fds = nil
	r.waiting = 0
	r.closeWakeFd()
	return r.poller.close()
}

func (r *Reactor) closeWakeFd() {
	_ = unix.Close(r.wakeFd)
	if r.wakeWriteFd != r.wakeFd {
		_ = unix.Close(r.wakeWriteFd)
	}
}

func drainWakeFd(fd int) {
	var buf [64]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
	}
}

// waitMillis converts a wait timeout to milliseconds, rounding up.
func waitMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	if ms > 1<<31-1 {
		ms = 1<<31 - 1
	}
	return int(ms)
}
