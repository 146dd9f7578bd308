package irq

import (
	"fmt"

	"rpi4kernel/internal/bsp"
	"rpi4kernel/internal/frame"
	"rpi4kernel/internal/kernelerr"
	"rpi4kernel/internal/logging"
)

// Dispatcher is the abstraction spec.md §4.2 asks the GIC-v2 implementation
// to satisfy: register_handler, enable, and a dispatch entry point invoked
// from the vector path.
type Dispatcher interface {
	RegisterHandler(desc HandlerDescriptor) error
	Enable(irqNumber int)
	HandlePendingIRQs(core int, f *frame.ExceptionFrame)
}

// Controller is the GIC-v2-backed Dispatcher: one shared Distributor and
// one CPUInterface per core, wired together the way
// original_source/kernel/src/drivers/gicv2.rs splits Distributor and
// CPU-interface responsibilities.
type Controller struct {
	distributor *Distributor
	cpuIfaces   [NumCores]*CPUInterface
	handlers    *HandlerTable

	// Log defaults to a bare component logger; kernel.New replaces it with
	// one carrying the kernel's own configured level/output.
	Log logging.Logger
}

// NumCores mirrors sched.NumCores; duplicated here (rather than imported)
// to keep internal/irq free of a dependency on internal/sched, since the
// scheduler depends on handler dispatch and not the reverse.
const NumCores = 4

// NewController wires a Distributor to four per-core CPU interfaces and an
// empty handler table, and connects the distributor's SGI sink to fan out
// asserted SGIs to the targeted cores' interfaces.
func NewController() *Controller {
	c := &Controller{
		distributor: NewDistributor(),
		handlers:    NewHandlerTable(),
		Log:         logging.Default().WithComponent("irq"),
	}
	for i := range c.cpuIfaces {
		c.cpuIfaces[i] = NewCPUInterface()
	}
	c.distributor.setSGISink(c.fanOutSGI)
	return c
}

func (c *Controller) fanOutSGI(sgiNumber int, targetMask uint8) {
	for core := 0; core < NumCores; core++ {
		if targetMask&(1<<uint(core)) != 0 {
			c.cpuIfaces[core].assert(sgiNumber)
		}
	}
}

// RegisterHandler installs desc into the handler table (spec.md §4.3).
func (c *Controller) RegisterHandler(desc HandlerDescriptor) error {
	return c.handlers.Register(desc)
}

// CloseRegistration permanently forbids further handler registration,
// mirroring transition_to_single_core_main's handoff (spec.md §4.3).
func (c *Controller) CloseRegistration() {
	c.handlers.Close()
}

// Enable marks irqNumber as enabled at the distributor.
func (c *Controller) Enable(irqNumber int) {
	c.distributor.Enable(irqNumber)
}

// AssertTimer simulates the architectural timer line firing for core: the
// timer IRQ is raised on that core's CPU interface only.
func (c *Controller) AssertTimer(core int) {
	c.cpuIfaces[core].assert(bsp.IRQNumberTimer)
}

// SendSGI is the GICD_SGIR write: raise sgiNumber on every core set in
// targetMask (spec.md §4.5). Ordering: the caller is expected to be inside
// an IRQ-safe critical section or otherwise single-threaded with respect to
// the run queue it is about to mutate; this model has no separate memory
// barrier to insert since there is no weakly-ordered memory to order
// against.
func (c *Controller) SendSGI(sgiNumber int, targetMask uint8) {
	c.distributor.writeSoftwareGenerate(sgiNumber, targetMask)
}

// HandlePendingIRQs is the dispatch entry point invoked from the vector
// path for the given core: acknowledge, guard against spurious, look up the
// handler, invoke it, signal end-of-interrupt (spec.md §4.2).
//
// A missing handler for a non-spurious IRQ is the fatal MissingHandler
// condition (spec.md §7) and panics, naming core and IRQ number, exactly as
// the original kernel does — there is no way to recover a dropped
// interrupt once the vector has already acknowledged it. This is this
// model's equivalent of spec.md §4.1's synchronous/SError vectors dumping
// the frame and halting: there being no guest instruction stream to raise
// an independent synchronous fault, MissingHandler is the fault condition
// this software model can actually reach, so it gets the same
// structured-dump-then-halt treatment.
func (c *Controller) HandlePendingIRQs(core int, f *frame.ExceptionFrame) {
	iface := c.cpuIfaces[core]
	irqNumber := iface.readAcknowledge()

	if irqNumber > bsp.MaxIRQNumber {
		return // spurious, spec.md §8 S4: no table lookup, no EOI write
	}

	desc, found := c.handlers.Lookup(irqNumber)
	if !found {
		err := fmt.Errorf("%w: IRQ %d on core %d", kernelerr.ErrMissingHandler, irqNumber, core)
		c.Log.Fatal().Err(err).Str("frame", f.String()).Msg("no handler registered for IRQ")
		panic(err)
	}

	desc.Handler(newContext(), core, f)
	iface.writeEndOfInterrupt(irqNumber)
}

var _ Dispatcher = (*Controller)(nil)
