package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/irq"
	"rpi4kernel/internal/kernel"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/thread"
)

// idleWorkloads returns the default workload every core boots with when run
// from the command line: a no-op that simply yields the core back to IRQ
// servicing every step, since this monitor's job is to observe and kick the
// scheduler, not to run real application threads.
func idleWorkloads() [sched.NumCores]thread.Workload {
	var ws [sched.NumCores]thread.Workload
	for i := range ws {
		ws[i] = thread.WorkloadFunc(func(f *frame.ExceptionFrame) thread.Signal {
			return thread.Continue
		})
	}
	return ws
}

// monitor reads single keypresses from the terminal (grounded on
// SchawnnDev-awesomeVM/cmd/lc3/main.go's keyboard.GetSingleKey() trap
// handling) and turns them into scheduler/IRQ operations against a running
// Kernel: 't' forces a tick, 's'+digit sends SGI-9 to a core, 'l' lists the
// run/sleep queues, 'q' requests shutdown.
type monitor struct {
	k      *kernel.Kernel
	cancel context.CancelFunc
}

func newMonitor(k *kernel.Kernel, cancel context.CancelFunc) *monitor {
	return &monitor{k: k, cancel: cancel}
}

func (m *monitor) run(ctx context.Context) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Non-interactive (e.g. piped input, CI): nothing to read, just
		// wait for shutdown.
		<-ctx.Done()
		return
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pikernel: monitor: %v\n", err)
		return
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	if err := keyboard.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "pikernel: monitor: %v\n", err)
		return
	}
	defer keyboard.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, key, err := keyboard.GetSingleKey()
		if err != nil {
			return
		}
		if key == keyboard.KeyCtrlC {
			m.cancel()
			return
		}

		switch ch {
		case 't':
			m.forceTick()
		case 'q':
			m.cancel()
			return
		case 'l':
			m.listQueues()
		default:
			if ch >= '0' && ch <= '3' {
				m.sgiKick(int(ch - '0'))
			}
		}
	}
}

func (m *monitor) forceTick() {
	m.k.Dispatcher.AssertTimer(kernel.BootCoreID)
}

func (m *monitor) sgiKick(core int) {
	m.k.Dispatcher.SendSGI(m.k.Config.SGINumber, irq.TargetMask(core))
}

func (m *monitor) listQueues() {
	for c := 0; c < sched.NumCores; c++ {
		current, ok := m.k.Scheduler.Current.Get(c)
		fmt.Printf("\r\ncore %d: current=%v run_queue=%v\n", c, currentOrNone(current, ok), m.k.Scheduler.RunQueues[c].PIDs())
	}
	fmt.Printf("sleep_queue=%v\n", m.k.Scheduler.SleepQueue.PIDs())
}

func currentOrNone(pid thread.PID, ok bool) string {
	if !ok {
		return "none"
	}
	return fmt.Sprintf("%d", pid)
}
