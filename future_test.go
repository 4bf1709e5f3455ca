package taskpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollResult_String(t *testing.T) {
	for _, tc := range []struct {
		result   PollResult
		expected string
	}{
		{Pending, "Pending"},
		{Ready, "Ready"},
		{PollResult(9), "Unknown"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.result.String())
		})
	}
}

func TestYield(t *testing.T) {
	var wakes atomic.Int32
	cx := NewContext(NewWaker(func() { wakes.Add(1) }))
	f := Yield()
	assert.Equal(t, Pending, f.Poll(cx))
	assert.Equal(t, int32(1), wakes.Load())
	assert.Equal(t, Ready, f.Poll(cx))
	assert.Equal(t, int32(1), wakes.Load())
}

func TestFunc(t *testing.T) {
	var n int
	f := Func(func() { n++ })
	assert.Equal(t, Ready, f.Poll(NewContext(nil)))
	assert.Equal(t, 1, n)
}

func TestSleep(t *testing.T) {
	woken := make(chan struct{}, 1)
	cx := NewContext(NewWaker(func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}))
	start := time.Now()
	f := Sleep(20 * time.Millisecond)
	require.Equal(t, Pending, f.Poll(cx))
	waitFor(t, woken, 5*time.Second)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, Ready, f.Poll(cx))
}

func TestSleep_nonPositive(t *testing.T) {
	assert.Equal(t, Ready, Sleep(0).Poll(NewContext(nil)))
	assert.Equal(t, Ready, Sleep(-time.Second).Poll(NewContext(nil)))
}

func TestSleep_stop(t *testing.T) {
	var wakes atomic.Int32
	f := Sleep(10 * time.Millisecond)
	require.Equal(t, Pending, f.Poll(NewContext(NewWaker(func() { wakes.Add(1) }))))
	f.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, wakes.Load())
}

func TestChain(t *testing.T) {
	var order []int
	f := Chain(
		Func(func() { order = append(order, 1) }),
		Yield(),
		Func(func() { order = append(order, 2) }),
	)
	cx := NewContext(nil)
	assert.Equal(t, Pending, f.Poll(cx))
	assert.Equal(t, []int{1}, order)
	assert.Equal(t, Ready, f.Poll(cx))
	assert.Equal(t, []int{1, 2}, order)
}

func TestContext_noWorker(t *testing.T) {
	cx := NewContext(nil)
	assert.Nil(t, cx.Reactor())
	assert.Nil(t, cx.Pool())
	assert.Equal(t, -1, cx.WorkerID())
	assert.ErrorIs(t, cx.WakeOnReadable(0), errNoReactor)
	assert.ErrorIs(t, cx.WakeOnWritable(0), errNoReactor)
}
