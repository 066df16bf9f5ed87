// File: reactor/reactor_test.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"testing"
	"time"
)

func TestOneShotTimerDoesNotFireEarly(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fired := false
	if _, err := r.RunAfter(100*time.Millisecond, func() { fired = true }); err != nil {
		t.Fatalf("RunAfter: %v", err)
	}

	if err := r.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fired {
		t.Fatal("timer fired before its delay elapsed")
	}

	time.Sleep(150 * time.Millisecond)
	if err := r.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !fired {
		t.Fatal("timer did not fire after its delay elapsed")
	}
}

func TestOutOfOrderTimerInsertionFiresInExpirationOrder(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var order []string
	r.RunAfter(200*time.Millisecond, func() { order = append(order, "a") })
	r.RunAfter(50*time.Millisecond, func() { order = append(order, "b") })
	r.RunAfter(100*time.Millisecond, func() { order = append(order, "c") })

	deadline := time.Now().Add(500 * time.Millisecond)
	for len(order) < 3 && time.Now().Before(deadline) {
		if err := r.RunOnce(10); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 firings, got %d: %v", len(order), order)
	}
	if order[0] != "b" || order[1] != "c" || order[2] != "a" {
		t.Fatalf("expected order [b c a], got %v", order)
	}
}

func TestCancelTimerPreventsFiring(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fired := false
	id, err := r.RunAfter(50*time.Millisecond, func() { fired = true })
	if err != nil {
		t.Fatalf("RunAfter: %v", err)
	}
	if err := r.CancelTimer(id); err != nil {
		t.Fatalf("CancelTimer: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := r.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fired {
		t.Fatal("cancelled timer fired")
	}
}

func TestCancelUnknownTimerReturnsNotFound(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if err := r.CancelTimer(TimerID(999999)); err == nil {
		t.Fatal("expected error cancelling an unknown timer id")
	}
}

func TestRunEveryFiresRepeatedlyAtExpectedCadence(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	count := 0
	id, err := r.RunEvery(30*time.Millisecond, func() { count++ })
	if err != nil {
		t.Fatalf("RunEvery: %v", err)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		r.RunOnce(10)
	}
	r.CancelTimer(id)

	if count < 4 || count > 8 {
		t.Fatalf("expected roughly 6 firings over 200ms at 30ms cadence, got %d", count)
	}
}

func TestRunInLoopDrainsAtTailOfCycle(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	ran := false
	reentrant := false
	r.RunInLoop(func() {
		ran = true
		r.RunInLoop(func() { reentrant = true })
	})

	if err := r.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !ran {
		t.Fatal("deferred task did not run")
	}
	if reentrant {
		t.Fatal("re-entrant append ran in the same cycle")
	}

	if err := r.RunOnce(0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !reentrant {
		t.Fatal("re-entrant append did not run on the next cycle")
	}
}

func TestRemoveUnknownSourceReturnsNotFound(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if err := r.RemoveSource(999); err == nil {
		t.Fatal("expected error removing an unregistered fd")
	}
}
