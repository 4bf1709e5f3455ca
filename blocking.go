package taskpool

import (
	"context"
	"runtime/debug"
	"sync/atomic"
)

type blockingResult[R any] struct {
	value R
	err   error
}

// SpawnBlocking runs fn and waits for its result. A panic in fn is returned
// as a [*PanicError].
//
// By default fn runs on a goroutine of the pool's blocking pool, bounded by
// [WithMaxBlocking], so it never occupies a worker. If the pool was built
// [WithInlineBlocking], fn is submitted to the shared queue and run by a
// worker, and calling SpawnBlocking from a task of the same pool returns
// [ErrReentrantBlocking].
func SpawnBlocking[R any](p *Pool, fn func() R) (R, error) {
	return SpawnBlockingContext(context.Background(), p, fn)
}

// SpawnBlockingContext is like [SpawnBlocking], but stops waiting once ctx
// is done, returning ctx.Err(). The closure, if started, still runs to
// completion.
func SpawnBlockingContext[R any](ctx context.Context, p *Pool, fn func() R) (R, error) {
	var zero R
	if p.closing.Load() {
		return zero, ErrPoolClosed
	}

	ch := make(chan blockingResult[R], 1)

	if p.options.inlineBlocking {
		if p.onWorker() {
			return zero, ErrReentrantBlocking
		}
		err := p.SpawnContext(ctx, Func(func() {
			p.metrics.blockingCalls.Add(1)
			ch <- callBlocking(fn)
		}))
		if err != nil {
			return zero, err
		}
	} else {
		if err := p.blocking.Acquire(ctx, 1); err != nil {
			return zero, err
		}
		p.metrics.blockingCalls.Add(1)
		go func() {
			defer p.blocking.Release(1)
			ch <- callBlocking(fn)
		}()
	}

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func callBlocking[R any](fn func() R) (res blockingResult[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	res.value = fn()
	return
}

// OffloadFuture runs a blocking closure on the blocking pool, completing
// once it has returned. It lets a task wait for blocking work without
// occupying its worker.
type OffloadFuture[R any] struct {
	pool   *Pool
	fn     func() R
	waker  atomic.Pointer[Waker]
	result blockingResult[R]
	done   atomic.Bool
	start  bool
}

// Offload returns a future that runs fn on the blocking pool of p. If p is
// nil, the pool of the polling worker is used, and if there is none fn runs
// on an unbounded goroutine.
func Offload[R any](p *Pool, fn func() R) *OffloadFuture[R] {
	return &OffloadFuture[R]{pool: p, fn: fn}
}

// Poll implements [Future].
func (x *OffloadFuture[R]) Poll(cx *Context) PollResult {
	if x.done.Load() {
		return Ready
	}
	x.waker.Store(cx.Waker())
	if !x.start {
		x.start = true
		p := x.pool
		if p == nil {
			p = cx.Pool()
		}
		go x.run(p)
	}
	if x.done.Load() {
		return Ready
	}
	return Pending
}

func (x *OffloadFuture[R]) run(p *Pool) {
	if p != nil {
		// cannot fail, the context is never done
		_ = p.blocking.Acquire(context.Background(), 1)
		defer p.blocking.Release(1)
		p.metrics.blockingCalls.Add(1)
	}
	x.result = callBlocking(x.fn)
	x.done.Store(true)
	x.waker.Load().Wake()
}

// Result returns the value returned by the closure, or the panic it raised
// as a [*PanicError]. It must only be called once the future is Ready.
func (x *OffloadFuture[R]) Result() (R, error) {
	return x.result.value, x.result.err
}
