// Package core ties the per-core pieces together into the fetch/dispatch
// loop spec.md §4.11 describes as "running preemptively with respect to
// threads on the same core": grounded on the teacher's CPU.Run
// fetch-decode-execute loop (SchawnnDev-awesomeVM/internal/mips/cpu.go),
// generalized from "decode one instruction" to "step the current thread's
// Workload, then servicing one pending IRQ."
package core

import (
	"sync/atomic"

	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/irq"
	"rpi4kernel/internal/kernelerr"
	"rpi4kernel/internal/logging"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/thread"
	"rpi4kernel/internal/timer"
)

// Core is one of the four hardware threads this kernel schedules across. It
// owns the live exception frame for whatever thread is currently running,
// and drives that thread's Workload one Step at a time between IRQ
// deliveries — the Go-level analogue of a real core executing native
// instructions until an exception redirects it (SPEC_FULL.md §0).
type Core struct {
	ID         int
	Dispatcher irq.Dispatcher
	Timer      *timer.Driver
	Scheduler  *sched.Scheduler
	Log        logging.Logger

	live    frame.ExceptionFrame
	running atomic.Bool
}

// New returns a Core wired to the given shared collaborators. id must be in
// [0, sched.NumCores).
func New(id int, dispatcher irq.Dispatcher, timerDriver *timer.Driver, scheduler *sched.Scheduler, log logging.Logger) *Core {
	return &Core{ID: id, Dispatcher: dispatcher, Timer: timerDriver, Scheduler: scheduler, Log: log}
}

// Boot installs first as this core's initial thread, exactly matching the
// SMP bring-up contract of spec.md §4.11: "selects its first runnable
// thread ... and performs __switch_to(dummy, first)" — here, copying
// first's saved frame directly into the live frame since there is no
// meaningful "dummy" predecessor to discard.
func (c *Core) Boot(first *thread.TCB) {
	first.Frame.CopySchedulerSubset(&c.live)
	c.Scheduler.Current.Set(c.ID, first.PID)
}

// Run executes the core's loop until Stop is called: step the current
// thread's Workload, then service exactly one pending IRQ (timer tick or
// SGI) before the next Step, mirroring the teacher's
// `for running { fetch; decode; execute }` shape.
func (c *Core) Run() {
	c.running.Store(true)
	for c.running.Load() {
		c.stepOnce()
	}
}

// Stop ends the Run loop after its current iteration.
func (c *Core) Stop() {
	c.running.Store(false)
}

func (c *Core) stepOnce() {
	currentPID, ok := c.Scheduler.Current.Get(c.ID)
	if !ok {
		return // boot not yet complete on this core
	}

	var signal thread.Signal
	found := c.Scheduler.RunQueues[c.ID].GetByPID(currentPID, func(t *thread.TCB) {
		t.Frame = c.live
		signal = t.Workload.Step(&c.live)
		t.Frame = c.live
	})
	if !found {
		// The current PID is not in its own run queue: it must be the
		// thread that just called Sleep() and is mid-switch, or it has
		// exited. Either way there is nothing more to step this round.
		return
	}

	switch signal {
	case thread.Yield:
		if err := c.Scheduler.Reschedule(c.ID, &c.live, false); err != nil {
			c.Log.Fatal().Err(err).Str("frame", c.live.String()).Msg("reschedule failed")
			panic(err)
		}
	case thread.Sleep:
		if err := c.Scheduler.Sleep(c.ID, &c.live, false); err != nil {
			c.Log.Fatal().Err(err).Str("frame", c.live.String()).Msg("sleep failed")
			panic(err)
		}
	case thread.Exit:
		c.Log.Debug().Uint64("pid", uint64(currentPID)).Msg("thread exiting")
		c.exitCurrent(currentPID)
	case thread.Continue:
		// fall through to IRQ servicing below
	}

	c.Dispatcher.HandlePendingIRQs(c.ID, &c.live)
}

func (c *Core) exitCurrent(pid thread.PID) {
	removed := c.Scheduler.RunQueues[c.ID].RemoveByPID(pid)
	if removed == nil {
		c.Log.Fatal().Uint64("pid", uint64(pid)).Str("frame", c.live.String()).Msg("exiting thread missing from its own run queue")
		panic(kernelerr.ErrEmptyRunQueue)
	}
	removed.Drop()
	if err := c.Scheduler.RescheduleFromContext(c.ID, &c.live); err != nil {
		c.Log.Fatal().Err(err).Str("frame", c.live.String()).Msg("reschedule after exit failed")
		panic(err)
	}
}
