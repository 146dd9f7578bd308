// Package sched implements the per-core run queues, the global sleep queue,
// and the scheduler engine that copies state between a live exception frame
// and a thread control block (spec.md §4.7–§4.9).
package sched

import (
	"rpi4kernel/internal/lock"
	"rpi4kernel/internal/thread"
)

// RunQueue is the ordered, IRQ-safe-locked container shape spec.md §3 uses
// both for the four per-core run queues and for the single global sleep
// queue — there is exactly one type because their contract is identical; it
// is the caller (the Scheduler) that decides which named instance a TCB
// currently lives in, preserving the "a TCB is owned by at most one queue
// instance at any time" invariant.
type RunQueue struct {
	lock lock.IRQSafeLock
	tcbs []*thread.TCB
}

// NewRunQueue returns an empty run queue.
func NewRunQueue() *RunQueue {
	return &RunQueue{}
}

// Add appends a TCB to the tail of the queue.
func (q *RunQueue) Add(t *thread.TCB) {
	q.lock.Lock(func() {
		q.tcbs = append(q.tcbs, t)
	})
}

// Len returns the number of TCBs currently enqueued.
func (q *RunQueue) Len() int {
	var n int
	q.lock.Lock(func() { n = len(q.tcbs) })
	return n
}

// Next selects a uniformly-at-random element, seeded from seedMillis (the
// caller's uptime-in-milliseconds reading — see prng.go), and runs fn with
// exclusive access to it. Reports false (fn not called) if the queue is
// empty; callers treat an empty queue here as the fatal EmptyRunQueue
// condition from spec.md §7.
//
// index = rng(seedMillis) % len, per spec.md §4.7 — never len-1 (see
// SPEC_FULL.md §8 on the resolved open question).
func (q *RunQueue) Next(seedMillis uint64, fn func(*thread.TCB)) bool {
	var found bool
	q.lock.Lock(func() {
		n := len(q.tcbs)
		if n == 0 {
			return
		}
		idx := int(seededRand(seedMillis) % uint64(n))
		fn(q.tcbs[idx])
		found = true
	})
	return found
}

// RemoveByPID removes the TCB with the given PID, if present, and returns
// it. O(n) linear scan, as spec.md §4.7 specifies.
func (q *RunQueue) RemoveByPID(pid thread.PID) *thread.TCB {
	var removed *thread.TCB
	q.lock.Lock(func() {
		for i, t := range q.tcbs {
			if t.PID == pid {
				removed = t
				q.tcbs = append(q.tcbs[:i], q.tcbs[i+1:]...)
				return
			}
		}
	})
	return removed
}

// GetByPID lends scoped, lock-bounded exclusive access to the TCB with the
// given PID to fn. This is deliberately a closure, not a returned pointer
// that could escape the lock (DESIGN.md, "ownership in queues"). Reports
// whether the PID was found.
func (q *RunQueue) GetByPID(pid thread.PID, fn func(*thread.TCB)) bool {
	var found bool
	q.lock.Lock(func() {
		for _, t := range q.tcbs {
			if t.PID == pid {
				fn(t)
				found = true
				return
			}
		}
	})
	return found
}

// Pop removes and returns the head of the queue, or nil if empty.
func (q *RunQueue) Pop() *thread.TCB {
	var popped *thread.TCB
	q.lock.Lock(func() {
		if len(q.tcbs) == 0 {
			return
		}
		popped = q.tcbs[0]
		q.tcbs = q.tcbs[1:]
	})
	return popped
}

// PIDs returns the PIDs currently enqueued, in insertion order, for display
// purposes (spec.md §4.7's iteration contract).
func (q *RunQueue) PIDs() []thread.PID {
	var pids []thread.PID
	q.lock.Lock(func() {
		pids = make([]thread.PID, len(q.tcbs))
		for i, t := range q.tcbs {
			pids[i] = t.PID
		}
	})
	return pids
}

// moveTo atomically removes the TCB with pid from q and appends it to dst,
// used by Sleep/Wake so a TCB is never observably absent from every queue.
func (q *RunQueue) moveTo(pid thread.PID, dst *RunQueue) *thread.TCB {
	t := q.RemoveByPID(pid)
	if t != nil {
		dst.Add(t)
	}
	return t
}
