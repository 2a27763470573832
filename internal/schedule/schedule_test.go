package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAfterRunsOnce(t *testing.T) {
	var n atomic.Int32
	After(5*time.Millisecond, func() { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestTimerCancelIsIdempotent(t *testing.T) {
	var n atomic.Int32
	tm := After(10*time.Millisecond, func() { n.Add(1) })
	tm.Cancel()
	tm.Cancel()
	assert.False(t, tm.Reset(time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestTimerReset(t *testing.T) {
	var n atomic.Int32
	tm := After(time.Hour, func() { n.Add(1) })
	require.True(t, tm.Reset(5*time.Millisecond))
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)
}

func TestEveryRepeatsUntilCancelled(t *testing.T) {
	var n atomic.Int32
	tk := Every(2*time.Millisecond, func() { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	tk.Cancel()
	<-tk.Done()
	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestEveryCancelFromInside(t *testing.T) {
	var n atomic.Int32
	var tk *Ticker
	ready := make(chan struct{})
	tk = Every(time.Millisecond, func() {
		<-ready
		n.Add(1)
		tk.Cancel()
	})
	close(ready)
	select {
	case <-tk.Done():
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
	assert.Equal(t, int32(1), n.Load())
}

func TestEveryDoesNotOverlap(t *testing.T) {
	var running, overlaps atomic.Int32
	var runs atomic.Int32
	tk := Every(time.Millisecond, func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
	})
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	tk.Cancel()
	<-tk.Done()
	assert.Zero(t, overlaps.Load())
}

func TestRecoversPanics(t *testing.T) {
	var n atomic.Int32
	tk := Every(time.Millisecond, func() {
		n.Add(1)
		panic("boom")
	})
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	tk.Cancel()
	<-tk.Done()
}

func TestRearmable(t *testing.T) {
	var n atomic.Int32
	r := NewRearmable(50*time.Millisecond, func() { n.Add(1) })
	assert.False(t, r.Armed())

	r.Arm()
	time.Sleep(25 * time.Millisecond)
	r.Arm() // restarts the countdown
	assert.True(t, r.Armed())
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, n.Load())
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, time.Millisecond)

	r.SetDelay(5 * time.Millisecond)
	r.Arm()
	r.Cancel()
	r.Cancel()
	assert.False(t, r.Armed())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}
