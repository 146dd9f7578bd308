// Package bsp provides the minimal, contract-faithful stand-ins for the
// collaborators spec.md §6 deliberately excludes from this kernel's scope
// (MMU, heap allocator, console, and the spin-table mailbox): just enough
// behavior to boot and test the scheduler core end-to-end, specified only
// through the interfaces spec.md names.
package bsp

// Physical MMIO layout consumed on a Raspberry Pi 4, per spec.md §6.
const (
	MailboxPhysBase = 0xFE00_B880
	MailboxSize     = 0x24

	GPIOPhysBase = 0xFE20_0000
	GPIOSize     = 0xA0

	UARTPhysBase = 0xFE20_1000
	UARTSize     = 0x48

	GICDPhysBase = 0xFF84_1000
	GICDSize     = 0x824

	GICCPhysBase = 0xFF84_2000
	GICCSize     = 0x14
)

// IRQ numbers used by this kernel, per spec.md §6.
const (
	IRQNumberSGI9  = 9
	IRQNumberTimer = 30
	IRQNumberUART  = 153
)

// MaxIRQNumber is the highest valid IRQ number (spec.md §4.2); anything
// above it read from the interrupt-acknowledge register is spurious.
const MaxIRQNumber = 1019
