package taskpool

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// workerLogger returns a sub-logger tagging every event with the worker id,
// or nil if logging is disabled.
func workerLogger(logger *logiface.Logger[logiface.Event], id int) *logiface.Logger[logiface.Event] {
	return logger.Clone().Int("worker", id).Logger()
}

func (w *worker) logStart() {
	w.logger.Debug().
		Int("stack_size", w.pool.config.stackSize).
		Log("worker started")
}

func (w *worker) logExit(err error) {
	if err != nil {
		w.logger.Crit().
			Err(err).
			Log("worker failed")
		return
	}
	w.logger.Debug().Log("worker exited")
}

// logPanic logs a task panic, subject to the per-worker rate limit.
func (w *worker) logPanic(j *job, perr *PanicError) {
	b := w.logger.Err()
	if !b.Enabled() {
		return
	}
	next, ok := w.pool.options.panicLimiter.Allow(w.id)
	if !ok {
		b.Release()
		return
	}
	b = b.Uint64("job", j.id).
		Str("panic", fmt.Sprint(perr.Value)).
		Str("stack", string(perr.Stack))
	if !next.IsZero() {
		b = b.Time("suppressed_until", next)
	}
	b.Log("task panicked")
}

func (p *Pool) logBuilt() {
	p.logger.Info().
		Int("threads", p.config.threadCount).
		Int("queue_size", p.config.queueSize).
		Bool("requeue_on_pending", p.options.requeuePending).
		Bool("inline_blocking", p.options.inlineBlocking).
		Log("pool started")
}

func (p *Pool) logShutdown(err error) {
	snapshot := p.metrics.Snapshot()
	var b *logiface.Builder[logiface.Event]
	if err != nil {
		b = p.logger.Warning().Err(err)
	} else {
		b = p.logger.Info()
	}
	b.Uint64("spawned", snapshot.Spawned).
		Uint64("completed", snapshot.Completed).
		Uint64("panics", snapshot.Panics).
		Log("pool stopped")
}
