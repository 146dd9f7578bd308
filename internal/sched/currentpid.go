package sched

import (
	"rpi4kernel/internal/lock"
	"rpi4kernel/internal/thread"
)

// NumCores is the number of hardware threads this kernel schedules across —
// the four Cortex-A72 cores of a Raspberry Pi 4.
const NumCores = 4

// CurrentPIDTable holds, for each core, the PID currently executing there
// (spec.md §3's CurrentPid[core]). nil means no thread has been scheduled
// on that core yet (boot, before the first context switch).
type CurrentPIDTable struct {
	entries [NumCores]currentPIDEntry
}

type currentPIDEntry struct {
	lock lock.IRQSafeLock
	pid  *thread.PID
}

// NewCurrentPIDTable returns a table with every core's current PID unset.
func NewCurrentPIDTable() *CurrentPIDTable {
	return &CurrentPIDTable{}
}

// Get returns the PID currently running on core, and whether one is set.
func (c *CurrentPIDTable) Get(core int) (thread.PID, bool) {
	var pid thread.PID
	var ok bool
	c.entries[core].lock.Lock(func() {
		if c.entries[core].pid != nil {
			pid = *c.entries[core].pid
			ok = true
		}
	})
	return pid, ok
}

// Set records pid as the thread currently running on core.
func (c *CurrentPIDTable) Set(core int, pid thread.PID) {
	c.entries[core].lock.Lock(func() {
		p := pid
		c.entries[core].pid = &p
	})
}

// Clear unsets core's current PID.
func (c *CurrentPIDTable) Clear(core int) {
	c.entries[core].lock.Lock(func() {
		c.entries[core].pid = nil
	})
}
