package irq

import (
	"fmt"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/kernelerr"
	"rpi4kernel/internal/lock"
)

// Handler is invoked with the IRQ context token proving the call happens on
// the vector path, the id of the core servicing the interrupt, and the live
// exception frame. IRQ delivery is local-core (spec.md §4.11), so a handler
// shared across cores — the timer and SGI-9 handlers both are — needs to
// know which core it is running on.
type Handler func(ctx Context, core int, f *frame.ExceptionFrame)

// HandlerDescriptor names a registered handler, mirroring the original
// kernel's {number, name, handler} triple (spec.md §3).
type HandlerDescriptor struct {
	Number  int
	Name    string
	Handler Handler
}

// HandlerTable is the single table indexed by IRQ number, writable only
// during init (spec.md §3/§4.3). Once an entry transitions from empty to
// occupied it never changes again — enforced here by InitStateLock[T]
// rather than by a separate "done" flag per slot, since the whole table
// closes for writes atomically when boot hands off to the scheduler.
type HandlerTable struct {
	slots *lock.InitStateLock[[bsp.MaxIRQNumber + 1]*HandlerDescriptor]
}

// NewHandlerTable returns an empty table accepting registrations.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{slots: lock.NewInitStateLock([bsp.MaxIRQNumber + 1]*HandlerDescriptor{})}
}

// Register installs desc at slot desc.Number. Fails with
// kernelerr.ErrAlreadyRegistered if that slot is occupied, or
// lock.ErrInitDone if the table has already been closed for writes
// (spec.md §4.3's "after transition_to_single_core_main, no further
// writes").
func (h *HandlerTable) Register(desc HandlerDescriptor) error {
	if desc.Number < 0 || desc.Number > bsp.MaxIRQNumber {
		return fmt.Errorf("irq: handler number %d out of range [0, %d]", desc.Number, bsp.MaxIRQNumber)
	}
	var conflict error
	err := h.slots.Write(func(slots *[bsp.MaxIRQNumber + 1]*HandlerDescriptor) {
		if slots[desc.Number] != nil {
			conflict = fmt.Errorf("%w: IRQ %d (%q already holds %q)",
				kernelerr.ErrAlreadyRegistered, desc.Number, slots[desc.Number].Name, desc.Name)
			return
		}
		d := desc
		slots[desc.Number] = &d
	})
	if err != nil {
		return err
	}
	return conflict
}

// Close permanently forbids further registration, mirroring the
// transition_to_single_core_main handoff.
func (h *HandlerTable) Close() {
	h.slots.MarkInitDone()
}

// Lookup returns the descriptor registered for number, if any.
func (h *HandlerTable) Lookup(number int) (HandlerDescriptor, bool) {
	var (
		desc  HandlerDescriptor
		found bool
	)
	h.slots.Read(func(slots [bsp.MaxIRQNumber + 1]*HandlerDescriptor) {
		if number >= 0 && number <= bsp.MaxIRQNumber && slots[number] != nil {
			desc, found = *slots[number], true
		}
	})
	return desc, found
}

