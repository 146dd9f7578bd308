// Package frame models the AArch64 EL1 exception context: the exact set of
// architectural state an exception entry stub saves and an exception return
// restores. The field layout mirrors the assembly trampoline bit-for-bit, as
// spec.md §3 requires, even though this module executes the trampoline in Go
// rather than assembly (see SPEC_FULL.md §0, "Why a software model").
package frame

import "fmt"

// InitialSPSR is the saved program status a freshly created thread starts
// with. Numerically 0x364, matching the constant in the original source: the
// D, A and F mask bits (9, 8, 6) are set and the I bit (7) is clear, so IRQs
// are unmasked while Debug, SError and FIQ are masked; bits 5 and 2 are also
// set, which puts 0b0100 (EL1t) in the M[3:0] mode field.
const InitialSPSR uint64 = 0x364

// SPSR bit layout (subset relevant to this kernel; AArch64 DAIF + M[3:0]).
const (
	spsrModeEL1h = 0x5

	spsrMaskD = 1 << 9
	spsrMaskA = 1 << 8
	spsrMaskI = 1 << 7
	spsrMaskF = 1 << 6

	spsrFlagN = 1 << 31
	spsrFlagZ = 1 << 30
	spsrFlagC = 1 << 29
	spsrFlagV = 1 << 28
)

// GPRCount is the number of general-purpose registers saved on entry (x0..x29).
const GPRCount = 30

// ExceptionFrame is the per-exception register save area. It is created by
// the vector stub on the current stack on every exception and is the unit of
// state a context switch moves between a live core and a thread's TCB.
type ExceptionFrame struct {
	GPR   [GPRCount]uint64 // x0..x29
	LR    uint64           // x30, the link register
	ELR   uint64           // exception link register: PC at the time of the exception
	SPSR  uint64           // saved program status (condition flags + interrupt masks)
	ESR   uint64           // exception syndrome register
	SPEL0 uint64           // stack pointer for EL0
	_     uint64           // reserved, keeps the struct 16-byte aligned like the stub's frame
}

// CopySchedulerSubset copies the fields the scheduler moves between the live
// frame and a TCB's saved frame: ELR, ESR, SPSR, all GPRs, LR, SP_EL0. It is
// the operation spec.md §4.9 steps 2 and 5 both perform, and the one §8.5's
// round-trip property is checked against.
func (f *ExceptionFrame) CopySchedulerSubset(dst *ExceptionFrame) {
	dst.GPR = f.GPR
	dst.LR = f.LR
	dst.ELR = f.ELR
	dst.ESR = f.ESR
	dst.SPSR = f.SPSR
	dst.SPEL0 = f.SPEL0
}

// IRQMasked reports whether the frame's SPSR has the IRQ mask bit (I) set.
func (f *ExceptionFrame) IRQMasked() bool {
	return f.SPSR&spsrMaskI != 0
}

// SetIRQMasked sets or clears the SPSR IRQ mask bit, used when a voluntary
// switch must smuggle the caller's current DAIF.I state into its saved frame
// (spec.md §9, "IRQ mask bit smuggling").
func (f *ExceptionFrame) SetIRQMasked(masked bool) {
	if masked {
		f.SPSR |= spsrMaskI
	} else {
		f.SPSR &^= spsrMaskI
	}
}

// DecodeSPSR renders the human-readable breakdown of an SPSR value the
// original kernel's Display impl produced for diagnostics.
func DecodeSPSR(spsr uint64) string {
	flag := func(set bool) string {
		if set {
			return "Set"
		}
		return "Not set"
	}
	mask := func(set bool) string {
		if set {
			return "Masked"
		}
		return "Unmasked"
	}
	return fmt.Sprintf(
		"SPSR: %#010x\n"+
			"  Flags:\n"+
			"    Negative (N): %s\n"+
			"    Zero     (Z): %s\n"+
			"    Carry    (C): %s\n"+
			"    Overflow (V): %s\n"+
			"  Exception handling state:\n"+
			"    Debug  (D): %s\n"+
			"    SError (A): %s\n"+
			"    IRQ    (I): %s\n"+
			"    FIQ    (F): %s",
		spsr,
		flag(spsr&spsrFlagN != 0),
		flag(spsr&spsrFlagZ != 0),
		flag(spsr&spsrFlagC != 0),
		flag(spsr&spsrFlagV != 0),
		mask(spsr&spsrMaskD != 0),
		mask(spsr&spsrMaskA != 0),
		mask(spsr&spsrMaskI != 0),
		mask(spsr&spsrMaskF != 0),
	)
}

// String renders the frame the way the original kernel's panic handler dumps
// it: ESR, SP_EL0, ELR, the decoded SPSR, then two GPRs per line and LR.
func (f *ExceptionFrame) String() string {
	s := fmt.Sprintf("ESR: %#x\nSP_EL0: %#x\nELR: %#018x\n%s\n\nGeneral purpose registers:\n",
		f.ESR, f.SPEL0, f.ELR, DecodeSPSR(f.SPSR))
	for i, reg := range f.GPR {
		s += fmt.Sprintf("  x%-2d: %#018x", i, reg)
		if i%2 == 1 {
			s += "\n"
		} else {
			s += "   "
		}
	}
	s += fmt.Sprintf("  lr : %#018x", f.LR)
	return s
}
