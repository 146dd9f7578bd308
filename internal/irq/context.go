package irq

// Context is a zero-size token proving a call happens from IRQ context,
// preserved from the original kernel's IrqContext marker (spec.md §4.2,
// grounded on original_source/kernel/src/exception/asynchronous.rs). It
// cannot be constructed outside this package, so a function that requires
// one as a parameter can only be called from handle_pending_irqs or code it
// calls — the architectural IRQ mask is guaranteed set for its lifetime.
type Context struct{ _ struct{} }

func newContext() Context { return Context{} }
