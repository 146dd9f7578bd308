// Package kernel wires bsp, irq, timer, sched, and smp into the bootable
// whole: Boot constructs the handler wiring from a config.Config and starts
// the four per-core loops; cancelling Boot's context tears them down. Grounded on the
// teacher's CPU/Memory construction-then-Run sequence in
// SchawnnDev-awesomeVM/cmd/mipsvm/main.go, generalized from "one CPU, one
// memory" to "four cores, one scheduler, one interrupt controller."
package kernel

import (
	"context"
	"fmt"
	"os"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/config"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/irq"
	"rpi4kernel/internal/logging"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/smp"
	"rpi4kernel/internal/thread"
	"rpi4kernel/internal/timer"
)

// BootCoreID is the core responsible for broadcasting SGI-9 on every tick
// (spec.md §4.9's "for core in {1,2,3}: send_sgi(SGI_9, core)").
const BootCoreID = 0

// Kernel owns every process-wide singleton spec.md §9 lists: the run
// queues and sleep queue (via Scheduler), the handler table and GIC model
// (via Dispatcher), the timer driver, the heap, and the four cores.
type Kernel struct {
	Config     config.Config
	Heap       *bsp.Heap
	Console    bsp.Console
	Dispatcher *irq.Controller
	Timer      *timer.Driver
	Scheduler  *sched.Scheduler
	Bringup    *smp.Bringup
	Log        logging.Logger
}

// New constructs every collaborator but does not start any core loop. It
// panics if cfg disagrees with the kernel's fixed parameters (core count,
// stack size/alignment) — a config mismatch here is the boot-time fatal
// error SPEC_FULL.md §5 describes, in the same vein as this kernel's other
// fatal conditions.
func New(cfg config.Config) *Kernel {
	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel)).WithComponent("kernel")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config disagrees with the kernel's fixed parameters")
		panic(err)
	}
	tickPeriod, _ := cfg.TickPeriodDuration() // already validated above

	heap := bsp.NewHeap(uintptr(cfg.HeapSize))
	dispatcher := irq.NewController()
	dispatcher.Log = log.WithComponent("irq")
	td := timer.NewDriver(tickPeriod)
	scheduler := sched.NewScheduler(td.UptimeMillis)
	bringup := smp.New(scheduler, dispatcher, td, log)

	return &Kernel{
		Config:     cfg,
		Heap:       heap,
		Console:    bsp.NewStreamConsole(os.Stdout),
		Dispatcher: dispatcher,
		Timer:      td,
		Scheduler:  scheduler,
		Bringup:    bringup,
		Log:        log,
	}
}

// registerHandlers installs the two handlers every core shares: the
// architectural timer (simply ticks the shared Driver; the reschedule
// itself is driven by the periodic callback installPeriodicTick installs
// on that Driver, per spec.md §4.4's "only the periodic form is used by the
// scheduler") and SGI-9 (reschedules whichever core received it). Both are
// core-aware, since IRQ delivery is local-core (spec.md §4.11) but the
// handler table is a single process-wide singleton (spec.md §3).
func (k *Kernel) registerHandlers() error {
	if err := k.Dispatcher.RegisterHandler(irq.HandlerDescriptor{
		Number: bsp.IRQNumberTimer,
		Name:   "architectural-timer",
		Handler: func(ctx irq.Context, core int, f *frame.ExceptionFrame) {
			k.Timer.Tick(f)
		},
	}); err != nil {
		return fmt.Errorf("kernel: registering timer handler: %w", err)
	}

	if err := k.Dispatcher.RegisterHandler(irq.HandlerDescriptor{
		Number: k.Config.SGINumber,
		Name:   "sgi-reschedule",
		Handler: func(ctx irq.Context, core int, f *frame.ExceptionFrame) {
			if err := k.Scheduler.RescheduleFromContext(core, f); err != nil {
				k.Log.Fatal().Err(err).Int("core", core).Str("frame", f.String()).Msg("reschedule on SGI failed")
				panic(err)
			}
		},
	}); err != nil {
		return fmt.Errorf("kernel: registering SGI handler: %w", err)
	}

	k.Dispatcher.Enable(bsp.IRQNumberTimer)
	k.Dispatcher.Enable(k.Config.SGINumber)
	return nil
}

// installPeriodicTick programs the timer.Driver's periodic callback with
// the tick-driven reschedule sequence spec.md §4.9 describes (broadcast
// SGI-9 to cores 1–3, then reschedule the boot core): this is the one
// place that sequence lives, invoked by timer.Driver.Tick only when a full
// TickPeriod has actually elapsed, rather than duplicated inline on every
// timer IRQ delivery (which is asserted once per the timer's Resolution;
// New sets that Resolution to the TickPeriod as well).
func (k *Kernel) installPeriodicTick() {
	period, _ := k.Config.TickPeriodDuration() // validated in New
	k.Timer.SetTimeoutPeriodic(period, func(f *frame.ExceptionFrame) {
		k.Dispatcher.BroadcastReschedule(BootCoreID)
		if err := k.Scheduler.RescheduleFromContext(BootCoreID, f); err != nil {
			k.Log.Fatal().Err(err).Str("frame", f.String()).Msg("reschedule on periodic tick failed")
			panic(err)
		}
	})
}

// Boot brings the kernel up: registers IRQ handlers, closes the handler
// table, programs the periodic tick, creates one thread per core from
// workloads, wakes the secondaries via the spin table, and starts every
// core's Run loop. It returns once ctx is cancelled or a core loop errors.
func (k *Kernel) Boot(ctx context.Context, workloads [sched.NumCores]thread.Workload) error {
	if err := k.registerHandlers(); err != nil {
		return err
	}
	k.Dispatcher.CloseRegistration()
	k.installPeriodicTick()
	k.Log.Info().Msg("handler table closed, booting cores")

	var firstThreads [sched.NumCores]*thread.TCB
	for i := 0; i < sched.NumCores; i++ {
		t, err := thread.New(k.Heap, 0, workloads[i])
		if err != nil {
			return fmt.Errorf("kernel: creating initial thread for core %d: %w", i, err)
		}
		firstThreads[i] = t
	}

	return k.Bringup.BootAll(ctx, firstThreads)
}
