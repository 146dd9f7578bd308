package bsp

import (
	"fmt"
	"sync"
)

// MMIODescriptor describes a physical MMIO region to be mapped, mirroring
// the (start, size) pairs spec.md §6's peripheral table gives for the
// Mailbox, GPIO, PL011 UART, and the two GIC regions.
type MMIODescriptor struct {
	PhysBase uintptr
	Size     uintptr
}

// MMU is the excluded translation-table collaborator's contract (spec.md
// §6): try_kernel_virt_addr_to_phys_addr and kernel_map_mmio. This is an
// identity-style stub: real translation-table generation is out of scope,
// but init code needs *some* virtual address to hand registered drivers, and
// the spin table needs a VA->PA translation for the secondary entry point.
type MMU struct {
	mu      sync.Mutex
	mmioVA  uintptr // next virtual address handed out for an MMIO mapping
	mapping map[string]uintptr
}

// NewMMU creates an MMU stub that hands out virtual addresses starting at
// vaBase for each distinct named MMIO region requested.
func NewMMU(vaBase uintptr) *MMU {
	return &MMU{mmioVA: vaBase, mapping: make(map[string]uintptr)}
}

// MapMMIO maps the named physical region and returns a virtual address.
// Repeated calls with the same name return the same mapping (idempotent,
// matching the original kernel_map_mmio's behavior of mapping each
// peripheral exactly once during init).
func (m *MMU) MapMMIO(name string, desc MMIODescriptor) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if va, ok := m.mapping[name]; ok {
		return va, nil
	}
	va := m.mmioVA
	m.mmioVA += (desc.Size + 0xFFF) &^ 0xFFF // page-round the stride
	m.mapping[name] = va
	return va, nil
}

// TranslateVA returns desc.PhysBase if va is a virtual address MapMMIO has
// handed out, and an error otherwise. The physical address comes from desc,
// not from the mapping: it does not check that va was mapped for desc.
func (m *MMU) TranslateVA(va uintptr, desc MMIODescriptor) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, mappedVA := range m.mapping {
		if mappedVA == va {
			_ = name
			return desc.PhysBase, nil
		}
	}
	return 0, fmt.Errorf("bsp: no mapping for virtual address %#x", va)
}
