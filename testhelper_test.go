package taskpool

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// testEvent is a minimal logiface.Event implementation, recording the
// message and string fields.
type testEvent struct {
	logiface.UnimplementedEvent
	fields map[string]any
	msg    string
	level  logiface.Level
}

func (e *testEvent) Level() logiface.Level { return e.level }

func (e *testEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any)
	}
	e.fields[key] = val
}

func (e *testEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

// testEventFactory creates testEvent instances.
type testEventFactory struct{}

func (testEventFactory) NewEvent(level logiface.Level) *testEvent {
	return &testEvent{level: level}
}

// testEventWriter records written events.
type testEventWriter struct {
	events []*testEvent
	mu     sync.Mutex
}

func (w *testEventWriter) Write(event *testEvent) error {
	w.mu.Lock()
	w.events = append(w.events, event)
	w.mu.Unlock()
	return nil
}

func (w *testEventWriter) messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := make([]string, len(w.events))
	for i, e := range w.events {
		msgs[i] = e.msg
	}
	return msgs
}

func (w *testEventWriter) count(msg string) (n int) {
	for _, m := range w.messages() {
		if m == msg {
			n++
		}
	}
	return
}

func newTestLogger(level logiface.Level) (*logiface.Logger[logiface.Event], *testEventWriter) {
	writer := &testEventWriter{}
	typed := logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](testEventFactory{}),
		logiface.WithWriter[*testEvent](writer),
		logiface.WithLevel[*testEvent](level),
	)
	return typed.Logger(), writer
}

// syncBuffer is a bytes.Buffer safe for concurrent writes.
type syncBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.String()
}

func newStumpyLogger(w *syncBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}

// newTestPool builds a pool, closing it at the end of the test.
func newTestPool(t *testing.T, cfg Config, opts ...Option) *Pool {
	t.Helper()
	p, err := cfg.Build(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { closeWithin(t, p, 10*time.Second) })
	return p
}

// closeWithin closes p, failing the test if that takes longer than d.
func closeWithin(t *testing.T, p *Pool, d time.Duration) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Close() }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatal("timed out closing pool")
	}
}

// waitFor fails the test if ch is not closed, or sent to, within d.
func waitFor[T any](t *testing.T, ch <-chan T, d time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(d):
		t.Fatal("timed out waiting")
		panic("unreachable")
	}
}

// newTestJob builds a job backed by a pool that is never started.
func newTestJob(f Future) (*job, *Pool) {
	p := &Pool{
		metrics:        newMetrics(false),
		queue:          make(chan *job, 16),
		overflowSignal: make(chan struct{}, 1),
		options:        &poolOptions{},
	}
	return newJob(p, 1, f), p
}
