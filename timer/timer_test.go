package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArmFires(t *testing.T) {
	s := New()
	done := make(chan int64, 1)
	s.Arm(1, time.Now().Add(10*time.Millisecond), func() { done <- 1 })
	assert.True(t, s.Armed(1))

	select {
	case id := <-done:
		assert.Equal(t, int64(1), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Eventually(t, func() bool { return !s.Armed(1) }, time.Second, 5*time.Millisecond)
}

func TestPastTimeFiresImmediately(t *testing.T) {
	s := New()
	done := make(chan struct{})
	s.Arm(1, time.Now().Add(-time.Hour), func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.Arm(1, time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	s.Cancel(1)
	s.Cancel(1)
	s.Cancel(2)
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Zero(t, s.Len())
}

func TestArmReplaces(t *testing.T) {
	s := New()
	var first, second atomic.Int32
	s.Arm(1, time.Now().Add(20*time.Millisecond), func() { first.Add(1) })
	s.Arm(1, time.Now().Add(30*time.Millisecond), func() { second.Add(1) })
	assert.Equal(t, 1, s.Len())

	assert.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestStop(t *testing.T) {
	s := New()
	var fired atomic.Int32
	s.Arm(1, time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	s.Arm(2, time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	s.Stop()
	s.Arm(3, time.Now(), func() { fired.Add(1) })
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Zero(t, s.Len())
}
