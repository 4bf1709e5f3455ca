package taskpool

// IOEvents represents the type of I/O readiness.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// readers are woken by any of these.
const readWakeEvents = EventRead | EventError | EventHangup

// writers are woken by any of these.
const writeWakeEvents = EventWrite | EventError | EventHangup

// Event is the readiness reported for a single file descriptor.
type Event struct {
	FD     int
	Events IOEvents
}

// Events is a reusable buffer of readiness events, filled by [Reactor.Wait]
// and consumed by [Reactor.Drain].
type Events struct {
	raw   []rawEvent
	ready []Event
}

// NewEvents allocates an event buffer able to receive up to capacity events
// per wait. A capacity below one is treated as one.
func NewEvents(capacity int) *Events {
	if capacity < 1 {
		capacity = 1
	}
	return &Events{
		raw:   make([]rawEvent, capacity),
		ready: make([]Event, 0, capacity),
	}
}

// Len returns the number of events received by the last wait.
func (x *Events) Len() int { return len(x.ready) }

// Slice returns the events received by the last wait. The slice is reused by
// the next wait.
func (x *Events) Slice() []Event { return x.ready }
