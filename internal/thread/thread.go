// Package thread implements the thread control block (spec.md §4.6): the
// owner of a thread's saved register frame and its EL0 stack allocation.
package thread

import (
	"fmt"
	"sync/atomic"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/kernelerr"
)

const (
	// StackSize is the fixed size of every thread's EL0 stack.
	StackSize = 8 * 1024
	// StackAlign is the fixed alignment of every thread's EL0 stack.
	StackAlign = 4096
)

// PID is a thread identifier, monotonically increasing from 1.
type PID uint64

var pidCounter atomic.Uint64

func init() {
	pidCounter.Store(1)
}

func nextPID() PID {
	return PID(pidCounter.Add(1) - 1)
}

// Workload is the Go-level stand-in for a thread's native code, since this
// module cannot resume arbitrary machine state at an arbitrary program
// counter (see SPEC_FULL.md §0). Step is invoked once per scheduling
// opportunity with the thread's live register frame; it mutates the frame
// directly (the same way the teacher's CPU executes an instruction against
// its register array) and returns the signal that tells the owning Core
// what to do next.
type Workload interface {
	Step(f *frame.ExceptionFrame) Signal
}

// Signal is a Workload's verdict after one Step.
type Signal int

const (
	// Continue means keep running this thread on the next opportunity.
	Continue Signal = iota
	// Yield is a voluntary reschedule() call: give up the core now.
	Yield
	// Sleep moves this thread to the sleep queue and gives up the core.
	Sleep
	// Exit removes this thread from all queues and drops it.
	Exit
)

// WorkloadFunc adapts a plain function to the Workload interface.
type WorkloadFunc func(f *frame.ExceptionFrame) Signal

// Step implements Workload.
func (w WorkloadFunc) Step(f *frame.ExceptionFrame) Signal { return w(f) }

// TCB is a thread control block: a PID, its saved exception frame, and its
// own stack allocation.
type TCB struct {
	PID       PID
	Frame     frame.ExceptionFrame
	StackBase uintptr

	Workload Workload

	heap       *bsp.Heap
	stackSize  uintptr
	stackBytes []byte
	dropped    bool
}

// New allocates an 8 KiB / 4 KiB-aligned stack from heap and returns a TCB
// whose frame is primed so a context restore lands at the workload's first
// Step call with a usable stack and interrupts unmasked at EL1, per spec.md
// §4.6. entryPC is recorded into LR/ELR purely for diagnostics and parity
// with the original layout; this model does not resume at a raw PC.
func New(heap *bsp.Heap, entryPC uint64, workload Workload) (*TCB, error) {
	base, mem, err := heap.Alloc(StackSize, StackAlign)
	if err != nil {
		return nil, fmt.Errorf("thread: %w: %v", kernelerr.ErrAllocationFailure, err)
	}

	t := &TCB{
		PID:        nextPID(),
		StackBase:  base,
		Workload:   workload,
		heap:       heap,
		stackSize:  StackSize,
		stackBytes: mem,
	}
	t.Frame.LR = entryPC
	t.Frame.ELR = entryPC
	t.Frame.SPEL0 = uint64(base) + StackSize
	t.Frame.SPSR = frame.InitialSPSR
	t.Frame.GPR = [frame.GPRCount]uint64{}

	return t, nil
}

// Drop releases the TCB's stack back to the heap. It must not be called
// while any core holds a reference to this TCB's frame for restore —
// callers are expected to have already removed the TCB from every queue
// (spec.md §4.6).
func (t *TCB) Drop() {
	if t.dropped {
		return
	}
	t.heap.Dealloc(t.StackBase, t.stackSize)
	t.dropped = true
}
