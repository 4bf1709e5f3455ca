package taskpool

import (
	"sync/atomic"
	"time"
)

// PollResult is the outcome of polling a [Future].
type PollResult uint8

const (
	// Pending indicates the future cannot complete yet. Before returning
	// Pending, a future must arrange for the context's waker to be invoked
	// once progress is possible.
	Pending PollResult = iota
	// Ready indicates the future has completed. It will not be polled again.
	Ready
)

// String returns a human-readable representation of the result.
func (x PollResult) String() string {
	switch x {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Future is a unit of cooperatively suspending work.
//
// Poll is called by at most one goroutine at a time. Implementations that
// return [Pending] are responsible for their own wake up, usually by
// registering interest with [Context.Reactor], or by retaining
// [Context.Waker] and invoking it later.
type Future interface {
	Poll(cx *Context) PollResult
}

// FutureFunc adapts a function to the [Future] interface.
type FutureFunc func(cx *Context) PollResult

// Poll calls f(cx).
func (f FutureFunc) Poll(cx *Context) PollResult { return f(cx) }

// Func returns a future that calls fn once then completes.
func Func(fn func()) Future {
	return FutureFunc(func(*Context) PollResult {
		fn()
		return Ready
	})
}

// Yield returns a future that is Pending on its first poll, waking itself
// immediately, and Ready on the next. It gives other queued tasks a chance to
// run.
func Yield() Future {
	var yielded bool
	return FutureFunc(func(cx *Context) PollResult {
		if yielded {
			return Ready
		}
		yielded = true
		cx.Waker().Wake()
		return Pending
	})
}

// SleepFuture completes once its duration has elapsed, measured from the
// first poll.
type SleepFuture struct {
	waker atomic.Pointer[Waker]
	timer *time.Timer
	d     time.Duration
	fired atomic.Bool
}

// Sleep returns a future that completes after d.
func Sleep(d time.Duration) *SleepFuture {
	return &SleepFuture{d: d}
}

// Poll implements [Future].
func (x *SleepFuture) Poll(cx *Context) PollResult {
	if x.fired.Load() {
		return Ready
	}
	x.waker.Store(cx.Waker())
	if x.timer == nil {
		if x.d <= 0 {
			x.fired.Store(true)
			return Ready
		}
		x.timer = time.AfterFunc(x.d, func() {
			x.fired.Store(true)
			x.waker.Load().Wake()
		})
	}
	if x.fired.Load() {
		return Ready
	}
	return Pending
}

// Stop releases the timer of a sleep that will no longer be polled.
func (x *SleepFuture) Stop() {
	if x.timer != nil {
		x.timer.Stop()
	}
}

// Chain returns a future that polls each future in order, completing once
// the last has completed.
func Chain(futures ...Future) Future {
	var i int
	return FutureFunc(func(cx *Context) PollResult {
		for i < len(futures) {
			if futures[i].Poll(cx) == Pending {
				return Pending
			}
			futures[i] = nil
			i++
		}
		return Ready
	})
}
