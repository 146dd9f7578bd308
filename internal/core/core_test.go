package core

import (
	"testing"
	"time"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/irq"
	"rpi4kernel/internal/logging"
	"rpi4kernel/internal/sched"
	"rpi4kernel/internal/thread"
	"rpi4kernel/internal/timer"
)

func newTestCore(t *testing.T, id int) (*Core, *irq.Controller, *sched.Scheduler, *bsp.Heap) {
	t.Helper()
	heap := bsp.NewHeap(1 << 20)
	dispatcher := irq.NewController()
	scheduler := sched.NewScheduler(func() uint64 { return 1 })
	td := timer.NewDriver(time.Millisecond)
	c := New(id, dispatcher, td, scheduler, logging.Default())
	return c, dispatcher, scheduler, heap
}

func TestCoreStepOnceRunsCurrentWorkload(t *testing.T) {
	c, _, scheduler, heap := newTestCore(t, 0)

	steps := 0
	tcb, err := thread.New(heap, 0x1000, thread.WorkloadFunc(func(f *frame.ExceptionFrame) thread.Signal {
		steps++
		return thread.Continue
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.RunQueues[0].Add(tcb)
	c.Boot(tcb)

	c.stepOnce()
	c.stepOnce()

	if steps != 2 {
		t.Fatalf("workload Step called %d times, want 2", steps)
	}
}

func TestCoreStepOnceHonorsSleepSignal(t *testing.T) {
	c, _, scheduler, heap := newTestCore(t, 0)

	t1, err := thread.New(heap, 0x1000, thread.WorkloadFunc(func(f *frame.ExceptionFrame) thread.Signal {
		return thread.Sleep
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, err := thread.New(heap, 0x2000, thread.WorkloadFunc(func(f *frame.ExceptionFrame) thread.Signal {
		return thread.Continue
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.RunQueues[0].Add(t1)
	scheduler.RunQueues[0].Add(t2)
	c.Boot(t1)

	c.stepOnce()

	current, ok := scheduler.Current.Get(0)
	if !ok || current != t2.PID {
		t.Fatalf("current = %v (ok=%v), want t2 after t1 slept", current, ok)
	}
	if scheduler.SleepQueue.Len() != 1 {
		t.Fatalf("SleepQueue.Len() = %d, want 1", scheduler.SleepQueue.Len())
	}
}

func TestCoreStepOnceDispatchesPendingIRQ(t *testing.T) {
	c, dispatcher, scheduler, heap := newTestCore(t, 0)

	tcb, err := thread.New(heap, 0x1000, thread.WorkloadFunc(func(f *frame.ExceptionFrame) thread.Signal {
		return thread.Continue
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.RunQueues[0].Add(tcb)
	c.Boot(tcb)

	handlerCalled := false
	if err := dispatcher.RegisterHandler(irq.HandlerDescriptor{
		Number: bsp.IRQNumberTimer,
		Name:   "test-timer",
		Handler: func(ctx irq.Context, core int, f *frame.ExceptionFrame) {
			handlerCalled = true
		},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dispatcher.AssertTimer(0)

	c.stepOnce()

	if !handlerCalled {
		t.Fatal("pending timer IRQ was not dispatched during stepOnce")
	}
}
