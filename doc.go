// Package taskpool provides a small task-scheduling runtime: a fixed-size pool
// of OS threads that execute cooperatively suspending tasks, driven by a
// per-worker I/O readiness reactor.
//
// # Architecture
//
// A task is any [Future]. Submitting one with [Pool.Spawn] places it on a
// shared bounded queue. A worker dequeues it and polls it with a [Context]
// carrying the task's [Waker] and the worker's [Reactor]. A task that cannot
// make progress returns [Pending], having arranged for its waker to be
// invoked later; invoking the waker puts the task back on the shared queue,
// where any worker may poll it again. A task that returns [Ready] is
// discarded.
//
// Each worker owns one [Reactor], bridging OS readiness to wakers. Interest
// registered by a task, e.g. via [Context.WakeOnReadable], is serviced by
// the reactor of the worker that polled it, and is one-shot.
//
// # Platform Support
//
// Reactors are implemented using platform-native mechanisms:
//   - Linux: epoll, with an eventfd for notifications
//   - macOS: kqueue, with a self-pipe for notifications
//
// On other platforms building a pool fails with [ErrUnsupportedPlatform].
//
// # Scheduling Guarantees
//
//   - A task is polled by at most one worker at a time
//   - A task is never polled after it returned [Ready]
//   - Waking a task that is already queued, or complete, has no effect
//   - A panic in a task completes it, and does not stop the worker
//
// There is no ordering guarantee beyond first submission being FIFO.
//
// # Usage
//
//	pool, err := taskpool.NewConfig().
//		ThreadCount(4).
//		Build(taskpool.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	_ = pool.Spawn(taskpool.Func(func() {
//		fmt.Println("hello from a worker")
//	}))
//
//	v, err := taskpool.SpawnBlocking(pool, func() int { return 42 })
package taskpool
