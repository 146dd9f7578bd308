// Package timer implements the architectural-timer driver contract spec.md
// §4.4 describes: resolution, uptime, busy-spin, and periodic/one-shot
// timeout callbacks. Grounded on the teacher's cycle-accounted CPU clock
// (SchawnnDev-awesomeVM/internal/vm, which tracks elapsed cycles to drive
// its own run loop) generalized to wall-clock time via a pluggable clock.
package timer

import (
	"sync"
	"time"

	"rpi4kernel/internal/frame"
)

// Callback receives the mutable exception frame on a timer fire (spec.md
// §4.4).
type Callback func(f *frame.ExceptionFrame)

// Driver is a single core-local timer comparator. Resolution is fixed at
// construction; Uptime is measured from the driver's creation.
type Driver struct {
	resolution time.Duration
	started    time.Time
	nowFunc    func() time.Time

	mu       sync.Mutex
	periodic *scheduledCallback
	oneShot  *scheduledCallback
}

type scheduledCallback struct {
	period time.Duration // zero for a one-shot
	nextAt time.Duration // uptime at which this callback next fires
	fn     Callback
}

// NewDriver returns a timer driver with the given resolution, using the
// real wall clock.
func NewDriver(resolution time.Duration) *Driver {
	return NewDriverWithClock(resolution, time.Now)
}

// NewDriverWithClock is NewDriver with an injectable clock, for
// deterministic tests.
func NewDriverWithClock(resolution time.Duration, nowFunc func() time.Time) *Driver {
	return &Driver{resolution: resolution, started: nowFunc(), nowFunc: nowFunc}
}

// Resolution returns the fixed tick granularity of this driver.
func (d *Driver) Resolution() time.Duration {
	return d.resolution
}

// Uptime returns elapsed time since the driver was constructed.
func (d *Driver) Uptime() time.Duration {
	return d.nowFunc().Sub(d.started)
}

// UptimeMillis is the uint64-milliseconds view the scheduler's PRNG seed
// consumes (spec.md §4.7/§9).
func (d *Driver) UptimeMillis() uint64 {
	return uint64(d.Uptime() / time.Millisecond)
}

// SpinFor busy-waits for the given duration, the software stand-in for the
// original kernel's cycle-counted spin_for.
func (d *Driver) SpinFor(dur time.Duration) {
	deadline := d.nowFunc().Add(dur)
	for d.nowFunc().Before(deadline) {
	}
}

// SetTimeoutPeriodic installs fn to fire every period, starting one period
// from now. Only the periodic form is used by the scheduler (spec.md §4.4).
func (d *Driver) SetTimeoutPeriodic(period time.Duration, fn Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.periodic = &scheduledCallback{period: period, nextAt: d.Uptime() + period, fn: fn}
}

// SetTimeoutOnce installs fn to fire once, after the given delay.
func (d *Driver) SetTimeoutOnce(after time.Duration, fn Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.oneShot = &scheduledCallback{nextAt: d.Uptime() + after, fn: fn}
}

// Tick checks whether any scheduled callback is due and, if so, invokes it
// with f: reprogram the comparator for the next fire, invoke the callback,
// return — exactly the sequence spec.md §4.4 specifies for the tick IRQ.
// Reports whether a callback fired.
func (d *Driver) Tick(f *frame.ExceptionFrame) bool {
	d.mu.Lock()
	now := d.Uptime()
	var fired Callback

	if d.periodic != nil && now >= d.periodic.nextAt {
		d.periodic.nextAt = now + d.periodic.period
		fired = d.periodic.fn
	} else if d.oneShot != nil && now >= d.oneShot.nextAt {
		fn := d.oneShot.fn
		d.oneShot = nil
		fired = fn
	}
	d.mu.Unlock()

	if fired == nil {
		return false
	}
	fired(f)
	return true
}
