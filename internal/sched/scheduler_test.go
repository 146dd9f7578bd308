package sched

import (
	"errors"
	"testing"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/kernelerr"
	"rpi4kernel/internal/thread"
)

func fixedUptime(ms uint64) func() uint64 {
	return func() uint64 { return ms }
}

// S1 from spec.md §8: single-core tick. Core 0 has two runnable threads,
// one of them current. A tick causes a context switch whose postconditions
// must hold regardless of which of the two threads the PRNG selects.
func TestRescheduleFromContextSingleCoreTick(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(42))

	t1 := newTestTCB(t, heap)
	t2 := newTestTCB(t, heap)
	s.RunQueues[0].Add(t1)
	s.RunQueues[0].Add(t2)
	s.Current.Set(0, t1.PID)

	live := frame.ExceptionFrame{ELR: 0x4000, SPSR: frame.InitialSPSR}
	live.GPR[3] = 0x1234

	if err := s.RescheduleFromContext(0, &live); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newCurrent, ok := s.Current.Get(0)
	if !ok {
		t.Fatal("CurrentPid[0] should be set after reschedule")
	}
	if newCurrent != t1.PID && newCurrent != t2.PID {
		t.Fatalf("new current %d is neither t1 (%d) nor t2 (%d)", newCurrent, t1.PID, t2.PID)
	}

	// Both threads remain enqueued in RunQueue[0].
	if s.RunQueues[0].Len() != 2 {
		t.Fatalf("RunQueue[0].Len() = %d, want 2", s.RunQueues[0].Len())
	}

	// t1's saved frame must reflect the live frame at the moment of the IRQ.
	var t1GPR3 uint64
	s.RunQueues[0].GetByPID(t1.PID, func(tcb *thread.TCB) { t1GPR3 = tcb.Frame.GPR[3] })
	if t1GPR3 != 0x1234 {
		t.Fatalf("t1.Frame.GPR[3] = %#x, want 0x1234 (preempted frame not stored)", t1GPR3)
	}

	// CurrentPid[c] = Some(p) => p in RunQueue[c] invariant.
	found := false
	for _, pid := range s.RunQueues[0].PIDs() {
		if pid == newCurrent {
			found = true
		}
	}
	if !found {
		t.Fatal("invariant violated: current PID not present in its own run queue")
	}
}

// S2 from spec.md §8: sleep then resume.
func TestSleepMovesCurrentToSleepQueue(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(7))

	t1 := newTestTCB(t, heap)
	t2 := newTestTCB(t, heap)
	s.RunQueues[0].Add(t1)
	s.RunQueues[0].Add(t2)
	s.Current.Set(0, t1.PID)

	live := frame.ExceptionFrame{SPSR: frame.InitialSPSR}
	if err := s.Sleep(0, &live, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, ok := s.Current.Get(0)
	if !ok || current != t2.PID {
		t.Fatalf("CurrentPid[0] = %v (ok=%v), want t2 (%d)", current, ok, t2.PID)
	}

	if s.RunQueues[0].Len() != 1 {
		t.Fatalf("RunQueue[0].Len() = %d, want 1 after sleep", s.RunQueues[0].Len())
	}
	if s.RunQueues[0].PIDs()[0] != t2.PID {
		t.Fatalf("RunQueue[0] = %v, want only t2", s.RunQueues[0].PIDs())
	}

	if s.SleepQueue.Len() != 1 || s.SleepQueue.PIDs()[0] != t1.PID {
		t.Fatalf("SleepQueue = %v, want [t1]", s.SleepQueue.PIDs())
	}

	// A sleeping thread is never selected by RunQueue.Next again.
	for i := 0; i < 50; i++ {
		var got thread.PID
		s.RunQueues[0].Next(uint64(i), func(tcb *thread.TCB) { got = tcb.PID })
		if got == t1.PID {
			t.Fatal("sleeping thread was selected by RunQueue.Next")
		}
	}
}

func TestSleepHonorsIRQMaskSmuggling(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(7))

	t1 := newTestTCB(t, heap)
	t2 := newTestTCB(t, heap)
	s.RunQueues[0].Add(t1)
	s.RunQueues[0].Add(t2)
	s.Current.Set(0, t1.PID)

	live := frame.ExceptionFrame{SPSR: frame.InitialSPSR} // IRQs unmasked at call site
	if err := s.Sleep(0, &live, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var masked bool
	s.SleepQueue.GetByPID(t1.PID, func(tcb *thread.TCB) { masked = tcb.Frame.IRQMasked() })
	if !masked {
		t.Fatal("t1's saved SPSR should have the IRQ mask bit set (smuggled from call site)")
	}
}

func TestRescheduleFromContextOnEmptyRunQueueIsFatal(t *testing.T) {
	s := NewScheduler(fixedUptime(1))
	live := frame.ExceptionFrame{}

	err := s.RescheduleFromContext(0, &live)
	if !errors.Is(err, kernelerr.ErrEmptyRunQueue) {
		t.Fatalf("err = %v, want ErrEmptyRunQueue", err)
	}
}

func TestRescheduleFromContextWithNoCurrentBootstraps(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(1))

	t1 := newTestTCB(t, heap)
	s.RunQueues[0].Add(t1)
	// CurrentPid[0] intentionally left unset: MissingCurrent / initial
	// bootstrap per spec.md §7.

	live := frame.ExceptionFrame{}
	if err := s.RescheduleFromContext(0, &live); err != nil {
		t.Fatalf("unexpected error on bootstrap reschedule: %v", err)
	}

	current, ok := s.Current.Get(0)
	if !ok || current != t1.PID {
		t.Fatalf("current = %v (ok=%v), want t1 (%d)", current, ok, t1.PID)
	}
}

func TestWakeMovesThreadBackToRunQueue(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(3))

	t1 := newTestTCB(t, heap)
	s.SleepQueue.Add(t1)

	if err := s.Wake(t1.PID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SleepQueue.Len() != 0 {
		t.Fatalf("SleepQueue.Len() = %d, want 0", s.SleepQueue.Len())
	}
	if s.RunQueues[2].Len() != 1 || s.RunQueues[2].PIDs()[0] != t1.PID {
		t.Fatalf("RunQueue[2] = %v, want [t1]", s.RunQueues[2].PIDs())
	}
}

func TestWakeUnknownPIDFails(t *testing.T) {
	s := NewScheduler(fixedUptime(3))
	if err := s.Wake(thread.PID(99999), 0); err == nil {
		t.Fatal("expected error waking a PID not present in the sleep queue")
	}
}

// PID membership invariant (spec.md §8.1): a PID lives in exactly one of
// {RunQueue[0..3], SleepQueue} at a time across a sequence of operations.
func TestPIDMembershipInvariantAcrossSleepAndWake(t *testing.T) {
	heap := bsp.NewHeap(1 << 20)
	s := NewScheduler(fixedUptime(5))

	t1 := newTestTCB(t, heap)
	t2 := newTestTCB(t, heap)
	s.RunQueues[0].Add(t1)
	s.RunQueues[0].Add(t2)
	s.Current.Set(0, t1.PID)

	countMemberships := func(pid thread.PID) int {
		n := 0
		for _, rq := range s.RunQueues {
			for _, p := range rq.PIDs() {
				if p == pid {
					n++
				}
			}
		}
		for _, p := range s.SleepQueue.PIDs() {
			if p == pid {
				n++
			}
		}
		return n
	}

	if countMemberships(t1.PID) != 1 {
		t.Fatal("t1 must start in exactly one queue")
	}

	live := frame.ExceptionFrame{}
	if err := s.Sleep(0, &live, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countMemberships(t1.PID) != 1 {
		t.Fatal("t1 must remain in exactly one queue after sleep")
	}

	if err := s.Wake(t1.PID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countMemberships(t1.PID) != 1 {
		t.Fatal("t1 must remain in exactly one queue after wake")
	}
}
