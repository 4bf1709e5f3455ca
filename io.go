//go:build linux || darwin

package taskpool

import (
	"golang.org/x/sys/unix"
)

// ReadinessFuture completes once its file descriptor has been reported ready,
// in one direction, by the reactor of the polling worker. Readiness may be
// spurious, callers must still handle EAGAIN.
type ReadinessFuture struct {
	err        error
	fd         int
	events     IOEvents
	registered bool
}

// Readable returns a future that completes once fd is readable. The fd
// should be in non-blocking mode.
func Readable(fd int) *ReadinessFuture {
	return &ReadinessFuture{fd: fd, events: EventRead}
}

// Writable returns a future that completes once fd is writable. The fd
// should be in non-blocking mode.
func Writable(fd int) *ReadinessFuture {
	return &ReadinessFuture{fd: fd, events: EventWrite}
}

// Poll implements [Future].
func (x *ReadinessFuture) Poll(cx *Context) PollResult {
	if x.registered {
		return Ready
	}
	if x.err = cx.wakeOn(x.fd, x.events); x.err != nil {
		return Ready
	}
	x.registered = true
	return Pending
}

// Err returns the error encountered registering interest, if any.
func (x *ReadinessFuture) Err() error { return x.err }

// ReadFuture reads from a non-blocking file descriptor, suspending while no
// data is available.
type ReadFuture struct {
	err error
	buf []byte
	fd  int
	n   int
}

// ReadFD returns a future that performs a single read of up to len(buf)
// bytes from fd, which must be in non-blocking mode.
func ReadFD(fd int, buf []byte) *ReadFuture {
	return &ReadFuture{fd: fd, buf: buf}
}

// Poll implements [Future].
func (x *ReadFuture) Poll(cx *Context) PollResult {
	for {
		n, err := unix.Read(x.fd, x.buf)
		switch err {
		case nil:
			x.n = n
			return Ready
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			if x.err = cx.WakeOnReadable(x.fd); x.err != nil {
				return Ready
			}
			return Pending
		default:
			x.err = err
			return Ready
		}
	}
}

// Result returns the number of bytes read, zero at end of file, and any
// error.
func (x *ReadFuture) Result() (int, error) { return x.n, x.err }

// Bytes returns the buffer read into.
func (x *ReadFuture) Bytes() []byte { return x.buf }

// WriteFuture writes all of a buffer to a non-blocking file descriptor,
// suspending while the descriptor is not writable.
type WriteFuture struct {
	err error
	buf []byte
	fd  int
	n   int
}

// WriteFD returns a future that writes buf to fd, which must be in
// non-blocking mode.
func WriteFD(fd int, buf []byte) *WriteFuture {
	return &WriteFuture{fd: fd, buf: buf}
}

// Poll implements [Future].
func (x *WriteFuture) Poll(cx *Context) PollResult {
	for x.n < len(x.buf) {
		n, err := unix.Write(x.fd, x.buf[x.n:])
		switch err {
		case nil:
			x.n += n
		case unix.EINTR:
		case unix.EAGAIN:
			if x.err = cx.WakeOnWritable(x.fd); x.err != nil {
				return Ready
			}
			return Pending
		default:
			x.err = err
			return Ready
		}
	}
	return Ready
}

// Result returns the number of bytes written and any error.
func (x *WriteFuture) Result() (int, error) { return x.n, x.err }

// Release deregisters fd from the reactor of the polling worker, if it was
// registered there. It must be called before closing an fd used with the
// reactor.
func (cx *Context) Release(fd int) error {
	r := cx.Reactor()
	if r == nil || !r.IsRegistered(fd) {
		return nil
	}
	return r.Deregister(fd)
}
