// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package taskpool

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

const (
	defaultDrainBudget     = 256
	defaultEventBufferSize = 256
	defaultMaxBlocking     = 512
)

// defaultPanicLogRates limits task panic logs, per worker.
var defaultPanicLogRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// poolOptions holds the optional configuration of a Pool.
type poolOptions struct {
	logger          *logiface.Logger[logiface.Event]
	panicHandler    func(*PanicError)
	panicLimiter    *catrate.Limiter
	pollTimeout     time.Duration
	drainBudget     int
	eventBufferSize int
	maxBlocking     int64
	metricsEnabled  bool
	requeuePending  bool
	inlineBlocking  bool
}

// Option configures a Pool.
type Option interface {
	applyPool(*poolOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyPoolFunc func(*poolOptions) error
}

func (o *optionImpl) applyPool(opts *poolOptions) error {
	return o.applyPoolFunc(opts)
}

// WithLogger sets the structured logger used by the pool and its workers.
// A nil logger disables logging, which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables poll latency estimation, exposed by [Pool.Metrics].
// Counters are always maintained.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithPollTimeout bounds how long a worker with pending I/O interest blocks
// in its reactor before checking the queue again. A negative value, the
// default, blocks until readiness or a notification.
func WithPollTimeout(timeout time.Duration) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.pollTimeout = timeout
		return nil
	}}
}

// WithRequeueOnPending makes workers put every task that returns [Pending]
// straight back on the queue, in addition to any wake it arranged. Tasks are
// then polled at least once per cycle whether or not they were woken. It is
// disabled by default.
func WithRequeueOnPending(enabled bool) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.requeuePending = enabled
		return nil
	}}
}

// WithDrainBudget sets how many tasks a worker polls before servicing its
// reactor, when it has pending I/O interest. Defaults to 256.
func WithDrainBudget(n int) Option {
	return &optionImpl{func(opts *poolOptions) error {
		if n < 1 {
			return fmt.Errorf("taskpool: invalid drain budget: %d", n)
		}
		opts.drainBudget = n
		return nil
	}}
}

// WithEventBufferSize sets the maximum number of readiness events a worker
// receives per reactor wait. Defaults to 256.
func WithEventBufferSize(n int) Option {
	return &optionImpl{func(opts *poolOptions) error {
		if n < 1 {
			return fmt.Errorf("taskpool: invalid event buffer size: %d", n)
		}
		opts.eventBufferSize = n
		return nil
	}}
}

// WithMaxBlocking limits the number of closures run concurrently by
// [SpawnBlocking]. Defaults to 512.
func WithMaxBlocking(n int) Option {
	return &optionImpl{func(opts *poolOptions) error {
		if n < 1 {
			return fmt.Errorf("taskpool: invalid max blocking: %d", n)
		}
		opts.maxBlocking = int64(n)
		return nil
	}}
}

// WithInlineBlocking makes [SpawnBlocking] run closures on the pool's
// workers, via the shared queue, instead of on dedicated goroutines.
func WithInlineBlocking(enabled bool) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.inlineBlocking = enabled
		return nil
	}}
}

// WithPanicHandler sets a callback invoked, on the worker, whenever a task
// panics. The task is treated as complete.
func WithPanicHandler(fn func(*PanicError)) Option {
	return &optionImpl{func(opts *poolOptions) error {
		opts.panicHandler = fn
		return nil
	}}
}

// WithPanicLogRates sets the rate limits applied to task panic logs, per
// worker, in the form accepted by [catrate.NewLimiter]. A nil or empty map
// disables limiting.
func WithPanicLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *poolOptions) (err error) {
		if len(rates) == 0 {
			opts.panicLimiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("taskpool: invalid panic log rates: %v", r)
			}
		}()
		opts.panicLimiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// resolvePoolOptions applies Option instances to poolOptions.
func resolvePoolOptions(opts []Option) (*poolOptions, error) {
	cfg := &poolOptions{
		pollTimeout:     -1,
		drainBudget:     defaultDrainBudget,
		eventBufferSize: defaultEventBufferSize,
		maxBlocking:     defaultMaxBlocking,
		panicLimiter:    catrate.NewLimiter(defaultPanicLogRates),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
