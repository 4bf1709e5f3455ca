package taskpool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the metrics of a [Pool] to Prometheus.
type Collector struct {
	pool *Pool

	spawned        *prometheus.Desc
	completed      *prometheus.Desc
	panics         *prometheus.Desc
	polls          *prometheus.Desc
	pending        *prometheus.Desc
	wakes          *prometheus.Desc
	redundantWakes *prometheus.Desc
	reactorWaits   *prometheus.Desc
	ioEvents       *prometheus.Desc
	blockingCalls  *prometheus.Desc
	liveTasks      *prometheus.Desc
	queuedTasks    *prometheus.Desc
	liveWorkers    *prometheus.Desc
	pollLatency    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for p. Metric names are prefixed with
// namespace and subsystem, as per [prometheus.BuildFQName].
//
//	prometheus.MustRegister(taskpool.NewCollector(pool, "app", "taskpool"))
func NewCollector(p *Pool, namespace, subsystem string) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		pool:           p,
		spawned:        desc("tasks_spawned_total", "Tasks accepted by the pool."),
		completed:      desc("tasks_completed_total", "Tasks that completed, including by panicking."),
		panics:         desc("tasks_panicked_total", "Tasks whose poll panicked."),
		polls:          desc("polls_total", "Task polls performed."),
		pending:        desc("polls_pending_total", "Task polls that returned pending."),
		wakes:          desc("wakes_total", "Wakes that rescheduled a task."),
		redundantWakes: desc("wakes_redundant_total", "Wakes ignored as the task was already scheduled or complete."),
		reactorWaits:   desc("reactor_waits_total", "Times a worker waited on its reactor."),
		ioEvents:       desc("reactor_events_total", "Readiness events received by reactors."),
		blockingCalls:  desc("blocking_calls_total", "Closures run on behalf of SpawnBlocking and Offload."),
		liveTasks:      desc("tasks_live", "Tasks accepted and not yet complete."),
		queuedTasks:    desc("tasks_queued", "Tasks waiting to be polled."),
		liveWorkers:    desc("workers_live", "Workers running."),
		pollLatency:    desc("poll_latency_seconds", "Estimated poll latency, if enabled.", "quantile"),
	}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.spawned, c.completed, c.panics, c.polls, c.pending, c.wakes, c.redundantWakes,
		c.reactorWaits, c.ioEvents, c.blockingCalls, c.liveTasks, c.queuedTasks, c.liveWorkers,
		c.pollLatency,
	} {
		ch <- d
	}
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Metrics()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter(c.spawned, s.Spawned)
	counter(c.completed, s.Completed)
	counter(c.panics, s.Panics)
	counter(c.polls, s.Polls)
	counter(c.pending, s.Pending)
	counter(c.wakes, s.Wakes)
	counter(c.redundantWakes, s.RedundantWakes)
	counter(c.reactorWaits, s.ReactorWaits)
	counter(c.ioEvents, s.IOEvents)
	counter(c.blockingCalls, s.BlockingCalls)
	gauge(c.liveTasks, c.pool.Pending())
	gauge(c.queuedTasks, c.pool.Queued())
	gauge(c.liveWorkers, c.pool.LiveWorkers())
	if s.PollLatency.Count != 0 {
		for _, q := range []struct {
			label string
			value float64
		}{
			{"0.5", s.PollLatency.P50.Seconds()},
			{"0.9", s.PollLatency.P90.Seconds()},
			{"0.99", s.PollLatency.P99.Seconds()},
		} {
			ch <- prometheus.MustNewConstMetric(c.pollLatency, prometheus.GaugeValue, q.value, q.label)
		}
	}
}
