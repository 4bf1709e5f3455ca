package taskpool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaker_nilPanics(t *testing.T) {
	assert.Panics(t, func() { NewWaker(nil) })
}

func TestWaker_wakeRunsCallback(t *testing.T) {
	var n atomic.Int32
	w := NewWaker(func() { n.Add(1) })
	w.Wake()
	w.WakeByRef()
	w.Clone().Wake()
	assert.Equal(t, int32(3), n.Load())
}

func TestWaker_concurrentWakes(t *testing.T) {
	var n atomic.Int32
	w := NewWaker(func() { n.Add(1) })
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				w.Clone().WakeByRef()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1600), n.Load())
}

func TestWaker_willWake(t *testing.T) {
	a := NewWaker(func() {})
	b := NewWaker(func() {})
	assert.True(t, a.WillWake(a.Clone()))
	assert.False(t, a.WillWake(b))
	assert.False(t, a.WillWake(nil))
	assert.True(t, (*Waker)(nil).WillWake(nil))

	j, _ := newTestJob(Func(func() {}))
	assert.True(t, j.waker.WillWake(newJobWaker(j)))
	assert.False(t, j.waker.WillWake(a))
}

func TestWaker_nilIsNoop(t *testing.T) {
	require.NotPanics(t, func() {
		var w *Waker
		w.Wake()
		NoopWaker().Wake()
	})
}
