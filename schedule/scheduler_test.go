package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestScheduleReplacesSameTag(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	var first, second atomic.Bool
	s.Schedule("x", 10*time.Millisecond, func() { first.Store(true) })
	s.Schedule("x", 10*time.Millisecond, func() { second.Store(true) })
	time.Sleep(50 * time.Millisecond)
	if first.Load() {
		t.Fatalf("first callback should have been canceled")
	}
	if !second.Load() {
		t.Fatalf("second callback should have run")
	}
}

func TestCancelPreventsRun(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	var ran atomic.Bool
	s.Schedule("y", 10*time.Millisecond, func() { ran.Store(true) })
	s.Cancel("y")
	time.Sleep(30 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("canceled callback should not run")
	}
}

func TestCancelAllDrainsEverything(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	var ranA, ranB atomic.Bool
	s.Schedule("a", 10*time.Millisecond, func() { ranA.Store(true) })
	s.Schedule("b", 10*time.Millisecond, func() { ranB.Store(true) })
	s.CancelAll()
	time.Sleep(30 * time.Millisecond)
	if ranA.Load() || ranB.Load() {
		t.Fatalf("CancelAll should have stopped both tasks")
	}
}

func TestScheduledPanicIsSwallowed(t *testing.T) {
	s := New(zap.NewNop().Sugar())
	done := make(chan struct{})
	s.Schedule("panic", 5*time.Millisecond, func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
		t.Fatalf("callback never ran")
	}
}
