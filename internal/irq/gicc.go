package irq

import "sync"

// CPUInterface models the GIC-v2 CPU Interface (GICC) register block, one
// instance per core: the Interrupt Acknowledge Register (IAR) and
// End-Of-Interrupt register (EOI), grounded on
// original_source/kernel/src/drivers/gicv2.rs (spec.md §4.2, §6: base
// 0xFF84_2000, size 0x14).
type CPUInterface struct {
	mu      sync.Mutex
	pending []int // FIFO of IRQ numbers asserted for this core, lowest index = highest priority
	lastEOI int
}

// NewCPUInterface returns a CPU interface with nothing pending.
func NewCPUInterface() *CPUInterface {
	return &CPUInterface{}
}

// assert enqueues irqNumber as pending for this core (simulates the
// distributor forwarding an asserted line to this CPU interface).
func (c *CPUInterface) assert(irqNumber int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, irqNumber)
}

// readAcknowledge is the IAR read: pops and returns the highest-priority
// pending IRQ number, or the spurious value (1023) if nothing is pending.
const spuriousIRQValue = 1023

func (c *CPUInterface) readAcknowledge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return spuriousIRQValue
	}
	n := c.pending[0]
	c.pending = c.pending[1:]
	return n
}

// writeEndOfInterrupt is the EOI register write, signaling completion of
// irqNumber's handling. This model has no priority-drop bookkeeping to
// verify against, so it is a no-op beyond recording for tests.
func (c *CPUInterface) writeEndOfInterrupt(irqNumber int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEOI = irqNumber
}

// LastEOI returns the most recently completed IRQ number, for tests.
func (c *CPUInterface) LastEOI() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEOI
}
