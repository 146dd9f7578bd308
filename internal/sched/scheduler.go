package sched

import (
	"fmt"

	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/kernelerr"
	"rpi4kernel/internal/thread"
)

// Scheduler implements the engine described in spec.md §4.9: on tick or
// SGI, persist the preempted thread's frame into its TCB and copy a newly
// chosen TCB's frame into the active exception frame.
type Scheduler struct {
	RunQueues  [NumCores]*RunQueue
	SleepQueue *RunQueue
	Current    *CurrentPIDTable

	// UptimeMillis supplies the seed for RunQueue.Next's pseudo-random
	// selection (spec.md §4.7/§9: "index = rng(uptime_ms) % len").
	UptimeMillis func() uint64
}

// NewScheduler builds a scheduler with four empty run queues and an empty
// sleep queue.
func NewScheduler(uptimeMillis func() uint64) *Scheduler {
	s := &Scheduler{
		SleepQueue:   NewRunQueue(),
		Current:      NewCurrentPIDTable(),
		UptimeMillis: uptimeMillis,
	}
	for i := range s.RunQueues {
		s.RunQueues[i] = NewRunQueue()
	}
	return s
}

// RescheduleFromContext is invoked from IRQ context (a timer tick or an
// SGI-9 delivery) with the core's live exception frame. It is steps 1–6 of
// spec.md §4.9 verbatim:
//
//  1. read CurrentPid[core]
//  2. if set, store the live frame's scheduler-preserved subset into the
//     preempted TCB
//  3. ask RunQueue[core].Next() for a successor (fatal if none)
//  4. set CurrentPid[core] to the successor
//  5. copy the successor's saved frame into the live frame
//
// If CurrentPid[core] was unset (MissingCurrent, spec.md §7 — the initial
// bootstrap case), step 2 is skipped and the live frame is populated purely
// from the freshly chosen successor.
func (s *Scheduler) RescheduleFromContext(core int, live *frame.ExceptionFrame) error {
	rq := s.RunQueues[core]

	if prevPID, ok := s.Current.Get(core); ok {
		rq.GetByPID(prevPID, func(t *thread.TCB) {
			live.CopySchedulerSubset(&t.Frame)
		})
	}

	successorPID, err := s.selectNext(core, rq, live)
	if err != nil {
		return err
	}
	s.Current.Set(core, successorPID)
	return nil
}

// Reschedule is the cooperative counterpart to RescheduleFromContext: called
// by a running thread (not from IRQ), it honors the IRQ-mask state at the
// call site by smuggling it into the saved SPSR before the switch (spec.md
// §9, "IRQ mask bit smuggling"), then performs the identical store/select/
// restore sequence.
func (s *Scheduler) Reschedule(core int, live *frame.ExceptionFrame, irqMaskedAtCallSite bool) error {
	live.SetIRQMasked(irqMaskedAtCallSite)
	return s.RescheduleFromContext(core, live)
}

// Sleep is identical to Reschedule except the current TCB is atomically
// moved from RunQueue[core] into the global SleepQueue before a successor is
// selected (spec.md §4.9). Fails fatally (ErrEmptyRunQueue) if no successor
// exists; a sleeping thread is not selected by any RunQueue.Next until Wake
// moves it back to a run queue.
func (s *Scheduler) Sleep(core int, live *frame.ExceptionFrame, irqMaskedAtCallSite bool) error {
	live.SetIRQMasked(irqMaskedAtCallSite)

	prevPID, ok := s.Current.Get(core)
	if !ok {
		return fmt.Errorf("sched: sleep() called on core %d with no current thread", core)
	}

	rq := s.RunQueues[core]
	rq.GetByPID(prevPID, func(t *thread.TCB) {
		live.CopySchedulerSubset(&t.Frame)
	})
	if moved := rq.moveTo(prevPID, s.SleepQueue); moved == nil {
		return fmt.Errorf("sched: current thread %d not found in its own run queue", prevPID)
	}

	successorPID, err := s.selectNext(core, rq, live)
	if err != nil {
		return err
	}
	s.Current.Set(core, successorPID)
	return nil
}

// Wake moves a sleeping thread back onto a target core's run queue, making
// it eligible for selection again. Not present in the original source
// (spec.md §9 flags the gap explicitly); additive per SPEC_FULL.md §7 and
// does not change any of the five invariants in spec.md §8.
func (s *Scheduler) Wake(pid thread.PID, targetCore int) error {
	if targetCore < 0 || targetCore >= NumCores {
		return fmt.Errorf("sched: invalid target core %d", targetCore)
	}
	if moved := s.SleepQueue.moveTo(pid, s.RunQueues[targetCore]); moved == nil {
		return fmt.Errorf("sched: pid %d not found in sleep queue", pid)
	}
	return nil
}

// selectNext asks rq.Next() for a successor and, on success, copies its
// saved frame into live. Returns ErrEmptyRunQueue (fatal per spec.md §7) if
// the run queue has nothing to offer.
func (s *Scheduler) selectNext(core int, rq *RunQueue, live *frame.ExceptionFrame) (thread.PID, error) {
	var successorPID thread.PID
	found := rq.Next(s.UptimeMillis(), func(t *thread.TCB) {
		successorPID = t.PID
		t.Frame.CopySchedulerSubset(live)
	})
	if !found {
		return 0, fmt.Errorf("%w: core %d", kernelerr.ErrEmptyRunQueue, core)
	}
	return successorPID, nil
}
