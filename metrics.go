package taskpool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics of a pool. Counters are maintained
// unconditionally; poll latency is estimated only if the pool was built
// [WithMetrics].
//
// All methods are safe for concurrent use.
type Metrics struct {
	latency *latencyMetrics

	spawned        atomic.Uint64
	completed      atomic.Uint64
	panics         atomic.Uint64
	polls          atomic.Uint64
	pending        atomic.Uint64
	requeued       atomic.Uint64
	wakes          atomic.Uint64
	redundantWakes atomic.Uint64
	reactorWaits   atomic.Uint64
	ioEvents       atomic.Uint64
	ioWakes        atomic.Uint64
	notifies       atomic.Uint64
	blockingCalls  atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	// Spawned is the number of tasks accepted.
	Spawned uint64
	// Completed is the number of tasks that finished, including panics.
	Completed uint64
	// Panics is the number of tasks whose poll panicked.
	Panics uint64
	// Polls is the number of polls performed.
	Polls uint64
	// Pending is the number of polls that returned Pending.
	Pending uint64
	// Requeued is the number of times a polled task went back on the queue.
	Requeued uint64
	// Wakes is the number of wakes that rescheduled a task.
	Wakes uint64
	// RedundantWakes is the number of wakes ignored as the task was already
	// scheduled, or complete.
	RedundantWakes uint64
	// ReactorWaits is the number of times a worker blocked in its reactor.
	ReactorWaits uint64
	// IOEvents is the number of readiness events received.
	IOEvents uint64
	// IOWakes is the number of wakers invoked due to readiness.
	IOWakes uint64
	// Notifies is the number of times a sleeping worker was notified of
	// queued work.
	Notifies uint64
	// BlockingCalls is the number of closures run by SpawnBlocking.
	BlockingCalls uint64

	// PollLatency is only populated if enabled.
	PollLatency LatencySnapshot
}

// LatencySnapshot summarises the duration of polls.
type LatencySnapshot struct {
	Count uint64
	Mean  time.Duration
	Max   time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
}

func newMetrics(latency bool) *Metrics {
	m := new(Metrics)
	if latency {
		m.latency = newLatencyMetrics()
	}
	return m
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Spawned:        m.spawned.Load(),
		Completed:      m.completed.Load(),
		Panics:         m.panics.Load(),
		Polls:          m.polls.Load(),
		Pending:        m.pending.Load(),
		Requeued:       m.requeued.Load(),
		Wakes:          m.wakes.Load(),
		RedundantWakes: m.redundantWakes.Load(),
		ReactorWaits:   m.reactorWaits.Load(),
		IOEvents:       m.ioEvents.Load(),
		IOWakes:        m.ioWakes.Load(),
		Notifies:       m.notifies.Load(),
		BlockingCalls:  m.blockingCalls.Load(),
	}
	if m.latency != nil {
		s.PollLatency = m.latency.snapshot()
	}
	return s
}

func (m *Metrics) recordPoll(d time.Duration) {
	if m.latency != nil {
		m.latency.record(d)
	}
}

// latencyMetrics estimates poll latency percentiles in constant space.
type latencyMetrics struct {
	p50, p90, p99 *quantileEstimator
	sum           time.Duration
	max           time.Duration
	count         uint64
	mu            sync.Mutex
}

func newLatencyMetrics() *latencyMetrics {
	return &latencyMetrics{
		p50: newQuantileEstimator(0.50),
		p90: newQuantileEstimator(0.90),
		p99: newQuantileEstimator(0.99),
	}
}

func (l *latencyMetrics) record(d time.Duration) {
	v := float64(d)
	l.mu.Lock()
	l.p50.observe(v)
	l.p90.observe(v)
	l.p99.observe(v)
	l.sum += d
	l.count++
	if d > l.max {
		l.max = d
	}
	l.mu.Unlock()
}

func (l *latencyMetrics) snapshot() (s LatencySnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	s.Count = l.count
	s.Mean = l.sum / time.Duration(l.count)
	s.Max = l.max
	s.P50 = time.Duration(l.p50.value())
	s.P90 = time.Duration(l.p90.value())
	s.P99 = time.Duration(l.p99.value())
	return
}
