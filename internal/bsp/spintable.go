package bsp

import "sync/atomic"

// MaxSecondaryCores is the number of non-boot cores this board supports
// (cores 1, 2, 3 on a Raspberry Pi 4's four Cortex-A72s).
const MaxSecondaryCores = 3

// SpinTable models the three mailbox wake-up slots the boot core writes to
// kick cores 1–3 out of WFE (original kernel: smp.rs's ONE/TWO/THREE
// register block at CORE_ACTIVATION_BASE_ADDR). Slot index 0 corresponds to
// core 1, index 1 to core 2, index 2 to core 3.
type SpinTable struct {
	slots [MaxSecondaryCores]atomic.Uint64
	woken [MaxSecondaryCores]atomic.Bool
}

// NewSpinTable creates an empty (unwritten) spin table.
func NewSpinTable() *SpinTable {
	return &SpinTable{}
}

// slotIndex converts a core ID (1..3) to a slot index (0..2).
func slotIndex(coreID int) (int, bool) {
	if coreID < 1 || coreID > MaxSecondaryCores {
		return 0, false
	}
	return coreID - 1, true
}

// Wake writes the secondary entry point's physical address into the given
// core's mailbox slot and marks it woken. The caller is responsible for the
// cache-maintenance-operation and memory-barrier sequence spec.md §4.11
// requires to precede this becoming visible to the target core; here that
// sequence is the Go memory model's happens-before guarantee from an
// atomic store, which SpinTable.Slot observes via an atomic load.
func (s *SpinTable) Wake(coreID int, entryPointPA uintptr) bool {
	idx, ok := slotIndex(coreID)
	if !ok {
		return false
	}
	s.slots[idx].Store(uint64(entryPointPA))
	s.woken[idx].Store(true)
	return true
}

// Slot returns the physical address last written to a core's wake-up slot,
// and whether that core has been woken at all.
func (s *SpinTable) Slot(coreID int) (uintptr, bool) {
	idx, ok := slotIndex(coreID)
	if !ok {
		return 0, false
	}
	return uintptr(s.slots[idx].Load()), s.woken[idx].Load()
}
