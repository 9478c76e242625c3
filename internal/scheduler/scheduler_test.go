package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"optionx/internal/scheduler"
)

func TestSingleModeFiresOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	done := make(chan struct{})
	s.Register("once", scheduler.Spec{Mode: scheduler.Single}, func(context.Context, time.Time) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want exactly 1 for Single mode", got)
	}
}

func TestPeriodicModeFiresRepeatedly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	s.Register("tick", scheduler.Spec{Mode: scheduler.Periodic, Period: 20 * time.Millisecond}, func(context.Context, time.Time) {
		atomic.AddInt32(&calls, 1)
	})

	time.Sleep(110 * time.Millisecond)
	s.Cancel("tick")

	if got := atomic.LoadInt32(&calls); got < 3 {
		t.Fatalf("calls = %d, want at least 3 periodic fires in 110ms at 20ms period", got)
	}
}

func TestMissedTicksCollapseIntoOne(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	var mu sync.Mutex
	firing := false
	s.Register("slow", scheduler.Spec{Mode: scheduler.Periodic, Period: 10 * time.Millisecond}, func(context.Context, time.Time) {
		mu.Lock()
		if firing {
			mu.Unlock()
			return
		}
		firing = true
		mu.Unlock()

		atomic.AddInt32(&calls, 1)
		time.Sleep(120 * time.Millisecond) // much longer than the period: several ticks queue up

		mu.Lock()
		firing = false
		mu.Unlock()
	})

	time.Sleep(160 * time.Millisecond)
	s.Cancel("slow")

	// Ticks accumulated during the slow body must collapse into a single
	// subsequent fire (drainTicker), not a burst of queued calls.
	if got := atomic.LoadInt32(&calls); got > 2 {
		t.Fatalf("calls = %d, want missed ticks collapsed to at most 2", got)
	}
}

func TestCancelStopsTaskWithNoFinalFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	s.Register("delayed", scheduler.Spec{Mode: scheduler.DelayedSingle, Delay: 200 * time.Millisecond}, func(context.Context, time.Time) {
		atomic.AddInt32(&calls, 1)
	})

	s.Cancel("delayed")
	time.Sleep(250 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("calls = %d, want 0: Cancel must not give a final fire", got)
	}
}

func TestShutdownFiresEachTaskExactlyOnceMore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	s.Register("cleanup", scheduler.Spec{Mode: scheduler.Periodic, Period: 10 * time.Millisecond}, func(context.Context, time.Time) {
		atomic.AddInt32(&calls, 1)
	})

	time.Sleep(35 * time.Millisecond) // let it fire a few times first
	before := atomic.LoadInt32(&calls)

	s.Shutdown()

	after := atomic.LoadInt32(&calls)
	if after != before+1 {
		t.Fatalf("calls after Shutdown = %d, want exactly %d (one final fire)", after, before+1)
	}

	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != after {
		t.Fatalf("calls kept increasing after Shutdown: %d -> %d", after, got)
	}
}

func TestRescheduleInReplacesRunningSpec(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	fired := make(chan time.Time, 4)
	s.Register("long-wait", scheduler.Spec{Mode: scheduler.DelayedSingle, Delay: 10 * time.Second}, func(_ context.Context, at time.Time) {
		fired <- at
	})

	if !s.RescheduleIn("long-wait", 20*time.Millisecond) {
		t.Fatal("RescheduleIn() = false, want true for a registered task")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("rescheduled task never fired - RescheduleIn did not take effect")
	}
}

func TestRescheduleUnknownTaskReturnsFalse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	if s.Reschedule("nope", scheduler.Spec{Mode: scheduler.Single}) {
		t.Fatal("Reschedule() = true for an unregistered task, want false")
	}
}

func TestRescheduleFromWithinTaskFunc(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	var calls int32
	done := make(chan struct{})
	s.Register("self-reschedule", scheduler.Spec{Mode: scheduler.Periodic, Period: 500 * time.Millisecond}, func(context.Context, time.Time) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			// Replace the long period with a short one-shot, called from
			// inside the task's own body.
			s.RescheduleIn("self-reschedule", 10*time.Millisecond)
		} else {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never picked up its own reschedule")
	}
}

func TestTaskNamesReflectsRegistrations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := scheduler.New(ctx, nil)

	s.Register("a", scheduler.Spec{Mode: scheduler.Periodic, Period: time.Hour}, func(context.Context, time.Time) {})
	s.Register("b", scheduler.Spec{Mode: scheduler.Periodic, Period: time.Hour}, func(context.Context, time.Time) {})

	names := s.TaskNames()
	if len(names) != 2 {
		t.Fatalf("TaskNames() = %v, want 2 entries", names)
	}
}
