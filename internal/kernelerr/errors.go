// Package kernelerr enumerates the kernel's error taxonomy (spec.md §7).
// Every condition here is non-recoverable; register_handler's
// AlreadyRegistered is the only one spec.md gives a normal error return
// instead of a panic, so it is the only one most call sites will see via
// errors.Is rather than recover().
package kernelerr

import "errors"

var (
	// ErrAlreadyRegistered is returned by the handler registry when a slot
	// for an IRQ number is already occupied.
	ErrAlreadyRegistered = errors.New("kernelerr: IRQ handler already registered")

	// ErrAllocationFailure marks a fatal stack/heap allocation failure.
	ErrAllocationFailure = errors.New("kernelerr: allocation failure")

	// ErrEmptyRunQueue marks the fatal EmptyRunQueue condition: Next()
	// found nothing to schedule.
	ErrEmptyRunQueue = errors.New("kernelerr: no next thread found")

	// ErrMissingHandler marks the fatal MissingHandler condition: an IRQ
	// at or below MaxIRQNumber arrived with no registered handler.
	ErrMissingHandler = errors.New("kernelerr: no handler registered for IRQ")
)
