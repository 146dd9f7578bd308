// Package smp implements the boot sequence spec.md §4.11 describes: the
// boot core wakes the three secondary cores via the spin-table mailbox,
// each secondary performs its own minimal init and selects its first
// runnable thread, and all four cores then run concurrently. Grounded on
// the teacher's goroutine-per-worker fan-out pattern
// (SchawnnDev-awesomeVM/cmd/lc3 dispatches one CPU loop per invocation;
// golang.org/x/sync/errgroup supplies the structured equivalent of "wait
// for every core's loop to report an error or shutdown").
package smp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/core"
	"rpi4kernel/internal/irq"
	"rpi4kernel/internal/logging"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/thread"
	"rpi4kernel/internal/timer"

	stdtime "time"
)

// BootCoreID is the only core whose architectural timer this model ticks
// against the real wall clock; every other core is driven purely by SGI-9
// fan-out from the boot core's timer handler (spec.md §4.9).
const BootCoreID = 0

// SecondaryEntryPointPA is the physical address this model uses to stand in
// for _start_secondary; it has no meaning beyond being written into the
// spin table and read back, since this is a software model rather than a
// real boot ROM (SPEC_FULL.md §0).
const SecondaryEntryPointPA uintptr = 0x8000_0000

// Bringup owns the four per-core loops and their shared collaborators. It
// is constructed once at boot and its Cores field is indexed identically to
// sched.Scheduler.RunQueues and sched.CurrentPIDTable.
type Bringup struct {
	Cores      [sched.NumCores]*core.Core
	SpinTable  *bsp.SpinTable
	Scheduler  *sched.Scheduler
	Dispatcher *irq.Controller
	Timer      *timer.Driver
}

// New wires four Core instances to a shared Scheduler, Dispatcher, and
// Timer, and an unwritten SpinTable.
func New(scheduler *sched.Scheduler, dispatcher *irq.Controller, timerDriver *timer.Driver, log logging.Logger) *Bringup {
	b := &Bringup{
		SpinTable:  bsp.NewSpinTable(),
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Timer:      timerDriver,
	}
	for i := range b.Cores {
		b.Cores[i] = core.New(i, dispatcher, timerDriver, scheduler, log.WithCore(i))
	}
	return b
}

// WakeSecondaries writes SecondaryEntryPointPA into the mailbox slots for
// cores 1–3, matching spec.md §4.11's "boot core wakes secondary cores by
// writing the physical address of _start_secondary into four mailbox
// slots" (this model has only three secondary cores' worth of slots — core
// 0 is the boot core and never waits on its own slot).
func (b *Bringup) WakeSecondaries() {
	for coreID := 1; coreID <= bsp.MaxSecondaryCores; coreID++ {
		b.SpinTable.Wake(coreID, SecondaryEntryPointPA)
	}
}

// BootAll installs firstThreads[i] as core i's initial thread (after adding
// it to that core's run queue) and starts all four Run loops concurrently
// under an errgroup, returning once ctx is cancelled or any core's loop
// returns a non-nil error. Mirrors "each secondary ... selects its first
// runnable thread from its per-core run queue and performs
// __switch_to(dummy, first)" for every core, boot core included, since in
// this model core 0 has no separate bring-up path once its own first
// thread exists.
func (b *Bringup) BootAll(ctx context.Context, firstThreads [sched.NumCores]*thread.TCB) error {
	b.WakeSecondaries()

	g, ctx := errgroup.WithContext(ctx)
	for i := range b.Cores {
		i := i
		first := firstThreads[i]
		if first == nil {
			return fmt.Errorf("smp: core %d has no first thread", i)
		}
		b.Scheduler.RunQueues[i].Add(first)
		b.Cores[i].Boot(first)

		g.Go(func() error {
			done := make(chan struct{})
			go func() {
				b.Cores[i].Run()
				close(done)
			}()
			select {
			case <-ctx.Done():
				b.Cores[i].Stop()
				<-done
				return ctx.Err()
			case <-done:
				return nil
			}
		})
	}

	g.Go(func() error { return b.driveBootTimer(ctx) })

	return g.Wait()
}

// driveBootTimer stands in for the real architectural timer's periodic
// firing on the boot core: every Timer.Resolution(), it asserts the timer
// IRQ against that core's CPU interface, where the boot core's own Run loop
// will pick it up the next time it services pending IRQs.
func (b *Bringup) driveBootTimer(ctx context.Context) error {
	ticker := stdtime.NewTicker(b.Timer.Resolution())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Dispatcher.AssertTimer(BootCoreID)
		}
	}
}
