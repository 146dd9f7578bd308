package irq

import "rpi4kernel/internal/bsp"

// TargetMask builds the GICD_SGIR CPU target list from a set of core
// indices, grounded on original_source/kernel/src/drivers/sgi.rs's
// core-id-to-bitmask helper.
func TargetMask(cores ...int) uint8 {
	var mask uint8
	for _, c := range cores {
		if c >= 0 && c < NumCores {
			mask |= 1 << uint(c)
		}
	}
	return mask
}

// BroadcastReschedule sends SGI-9 ("please preempt") to every core except
// from, matching spec.md §4.9's timer-tick fan-out: "for core in {1,2,3}:
// send_sgi(SGI_9, core)" when from is the boot core.
func (c *Controller) BroadcastReschedule(from int) {
	var targets []int
	for core := 0; core < NumCores; core++ {
		if core != from {
			targets = append(targets, core)
		}
	}
	c.SendSGI(bsp.IRQNumberSGI9, TargetMask(targets...))
}
