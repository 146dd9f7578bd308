package irq

import "sync"

// Distributor models the GIC-v2 Distributor (GICD) register block:
// per-interrupt enable bits and the software-generated-interrupt register,
// grounded on original_source/kernel/src/drivers/gicv2.rs's split between
// GICD and GICC responsibilities (spec.md §4.2/§4.5).
//
// The physical register layout (spec.md §6: base 0xFF84_1000, size 0x824)
// is not reproduced bit-for-bit; only the two operations this kernel
// exercises — per-IRQ enable and SGI generation — are modeled.
type Distributor struct {
	mu      sync.Mutex
	enabled [1020]bool

	// sgiSink receives (sgiNumber, targetMask) writes to the
	// software-generated-interrupt register. Wired by the controller to
	// fan an SGI write out to whichever simulated cores are in the mask.
	sgiSink func(sgiNumber int, targetMask uint8)
}

// NewDistributor returns a Distributor with every IRQ disabled.
func NewDistributor() *Distributor {
	return &Distributor{}
}

// Enable marks irqNumber as enabled at the distributor (ISENABLER write).
func (d *Distributor) Enable(irqNumber int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if irqNumber >= 0 && irqNumber < len(d.enabled) {
		d.enabled[irqNumber] = true
	}
}

// IsEnabled reports whether irqNumber has been enabled.
func (d *Distributor) IsEnabled(irqNumber int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return irqNumber >= 0 && irqNumber < len(d.enabled) && d.enabled[irqNumber]
}

// setSGISink wires the controller's fan-out callback; called once at
// construction by NewController.
func (d *Distributor) setSGISink(fn func(sgiNumber int, targetMask uint8)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sgiSink = fn
}

// writeSoftwareGenerate is the GICD_SGIR register write: raise sgiNumber on
// every core set in targetMask. A target CPU not present in the system is
// silently ignored by the distributor, per spec.md §8's listed edge case —
// the fan-out callback is responsible for that since it owns the known set
// of live cores.
func (d *Distributor) writeSoftwareGenerate(sgiNumber int, targetMask uint8) {
	d.mu.Lock()
	sink := d.sgiSink
	d.mu.Unlock()
	if sink != nil {
		sink(sgiNumber, targetMask)
	}
}
