package taskpool

// Waker is a handle used to notify the scheduler that a suspended task is
// ready to make progress.
//
// A Waker is immutable and safe for concurrent use. Waking more than once is
// harmless; duplicate wakes of a task that is already scheduled are ignored.
type Waker struct {
	fn  func()
	key any
}

// NewWaker builds a Waker from a callback. The callback must be safe to call
// from any goroutine and any number of times. It panics if fn is nil.
func NewWaker(fn func()) *Waker {
	if fn == nil {
		panic("taskpool: nil waker func")
	}
	w := &Waker{fn: fn}
	w.key = w
	return w
}

// newJobWaker builds the waker used to reschedule j. Wakers of the same job
// compare equal under [Waker.WillWake].
func newJobWaker(j *job) *Waker {
	return &Waker{fn: j.wake, key: j}
}

var noopWaker = NewWaker(func() {})

// NoopWaker returns a Waker that does nothing when woken.
func NoopWaker() *Waker { return noopWaker }

// Wake notifies the associated task. It consumes the handle, which for this
// implementation is identical to [Waker.WakeByRef].
func (w *Waker) Wake() { w.WakeByRef() }

// WakeByRef notifies the associated task without consuming the handle.
// A nil receiver is a no-op.
func (w *Waker) WakeByRef() {
	if w != nil {
		w.fn()
	}
}

// Clone returns a Waker that wakes the same task.
func (w *Waker) Clone() *Waker { return w }

// WillWake reports whether w and other wake the same task.
func (w *Waker) WillWake(other *Waker) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.key == other.key
}
